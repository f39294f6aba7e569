// Package engine holds the evaluation core: matching fetched queues against
// configured rules and aggregating per-queue verdicts into one prioritized
// outcome. It is pure — no network calls, no I/O, no shared state — so it can
// be driven entirely by pre-collected data in tests.
package engine

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rabbitops/rmqcheck/internal/models"
	"github.com/rabbitops/rmqcheck/internal/rabbit"
)

// reasonWrongPolicy and reasonQueueNotFound are operator-facing and rendered
// verbatim in the status line.
const (
	reasonWrongPolicy   = "Wrong queue policy"
	reasonQueueNotFound = "Queue not found"
)

// Evaluate runs one pass over the fetched records against the rule set and
// returns the aggregate outcome.
//
// Rule resolution per record: an exact-name rule wins; otherwise the longest
// configured prefix of the name applies (equal lengths break lexicographically
// so resolution is deterministic); otherwise the queue is unguarded and only
// contributes its depth to the stats.
//
// Configured exact names that never appear among the records are critical
// with reason "Queue not found" and get no stats entry — there is no depth to
// report. Prefixes are fallback matchers, never an inventory, so an unmatched
// prefix is not a violation.
func Evaluate(records []models.QueueRecord, rules models.RuleSet) models.Outcome {
	result := models.NewRunResult()
	prefixes := sortedPrefixes(rules.Prefixes)

	for _, record := range records {
		if record.Name == "" {
			// Malformed listing entry; nothing to key the verdict on.
			continue
		}
		rule, guarded := resolveRule(record.Name, rules, prefixes)
		verdict := checkQueue(record, rule, guarded)

		result.Stats[record.Name] = models.DepthStat(verdict.Depth)
		switch verdict.Severity() {
		case models.SeverityCritical:
			// Only the critical reasons are reported; a coexisting depth
			// warning would double-count the queue on dashboards.
			result.CriticalQueues[record.Name] = verdict.Criticals
		case models.SeverityWarning:
			result.WarningQueues[record.Name] = verdict.Warnings
		}
	}

	for name := range rules.Queues {
		if _, seen := result.Stats[name]; !seen {
			result.CriticalQueues[name] = []models.Reason{models.TextReason(reasonQueueNotFound)}
		}
	}

	return models.Outcome{Severity: overallSeverity(result), Result: result}
}

// FetchFailureOutcome converts a classified listing failure into the critical
// outcome for the whole run: no queue data is trustworthy, so the failure
// message stands in for every queue under the single key "all".
func FetchFailureOutcome(ferr *rabbit.FetchError) models.Outcome {
	result := models.NewRunResult()
	result.Stats["all"] = models.MessageStat(ferr.Message)
	result.CriticalQueues["all"] = []models.Reason{models.TextReason(ferr.Message)}
	return models.Outcome{Severity: models.SeverityCritical, Result: result}
}

// checkQueue evaluates one record against its resolved rule. With no rule the
// verdict is clean. Depth strictly above the critical threshold is critical,
// else strictly above warning is a warning. A required policy that differs
// structurally from the queue's effective policy is critical independent of
// depth, so broker-side configuration drift surfaces even under light traffic.
func checkQueue(record models.QueueRecord, rule models.ThresholdRule, guarded bool) models.QueueVerdict {
	verdict := models.QueueVerdict{Name: record.Name, Depth: record.MessagesReady}
	if !guarded {
		return verdict
	}

	if verdict.Depth > rule.Critical {
		verdict.Criticals = append(verdict.Criticals, models.DepthReason(verdict.Depth))
	} else if verdict.Depth > rule.Warning {
		verdict.Warnings = append(verdict.Warnings, models.DepthReason(verdict.Depth))
	}

	if len(rule.Policy) > 0 && !policyEqual(rule.Policy, record.EffectivePolicy) {
		verdict.Criticals = append(verdict.Criticals, models.TextReason(reasonWrongPolicy))
	}

	return verdict
}

// resolveRule returns the rule governing name: the exact rule if configured,
// else the rule of the longest matching prefix. The second return reports
// whether any rule applies.
func resolveRule(name string, rules models.RuleSet, prefixes []string) (models.ThresholdRule, bool) {
	if rule, ok := rules.Queues[name]; ok {
		return rule, true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return rules.Prefixes[prefix], true
		}
	}
	return models.ThresholdRule{}, false
}

// sortedPrefixes orders the configured prefixes longest first so the most
// specific one wins, with a lexicographic tie-break for determinism.
func sortedPrefixes(prefixRules map[string]models.ThresholdRule) []string {
	prefixes := make([]string, 0, len(prefixRules))
	for prefix := range prefixRules {
		prefixes = append(prefixes, prefix)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return prefixes
}

// policyEqual compares two policy definitions structurally via their
// canonical JSON encodings. The desired policy comes from YAML (integers
// decode as int) while the observed one comes from JSON (numbers decode as
// float64); comparing encodings makes 500 and 500.0 equal and ignores map
// key order.
func policyEqual(want, got map[string]any) bool {
	wantJSON, err := json.Marshal(want)
	if err != nil {
		return false
	}
	gotJSON, err := json.Marshal(got)
	if err != nil {
		return false
	}
	return bytes.Equal(wantJSON, gotJSON)
}

func overallSeverity(result models.RunResult) models.Severity {
	switch {
	case len(result.CriticalQueues) > 0:
		return models.SeverityCritical
	case len(result.WarningQueues) > 0:
		return models.SeverityWarning
	default:
		return models.SeverityOK
	}
}
