package models

import (
	"sort"
	"strconv"
)

// Severity is the health classification of a single queue or of the whole
// check run. The string values double as the status-line prefix expected by
// monitoring hosts.
type Severity string

const (
	SeverityOK       Severity = "OK"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Process exit codes in the monitoring-plugin calling convention.
const (
	ExitOK            = 0
	ExitWarning       = 1
	ExitCritical      = 2
	ExitConfigMissing = 3
)

// ExitCode maps the severity to its monitoring-plugin exit code.
func (s Severity) ExitCode() int {
	switch s {
	case SeverityCritical:
		return ExitCritical
	case SeverityWarning:
		return ExitWarning
	default:
		return ExitOK
	}
}

// ThresholdRule is the desired state for one queue or queue-name prefix.
// Immutable once built from configuration.
type ThresholdRule struct {
	// Warning and Critical are depth thresholds; a queue violates a
	// threshold when its ready-message count is strictly greater.
	Warning  int
	Critical int

	// Policy, when non-nil, is the required effective policy definition.
	// It is compared structurally against the policy reported by the broker.
	Policy map[string]any
}

// RuleSet holds all configured rules for one check run, keyed by exact queue
// name and by queue-name prefix. Read-only after construction.
type RuleSet struct {
	Queues   map[string]ThresholdRule
	Prefixes map[string]ThresholdRule
}

// QueueRecord is the snapshot of one queue as reported by the broker's
// management API. Produced once by the fetch, never mutated.
type QueueRecord struct {
	Name            string         `json:"name"`
	MessagesReady   int            `json:"messages_ready"`
	EffectivePolicy map[string]any `json:"effective_policy_definition"`
}

// Reason is a single violation recorded against a queue. Depth violations
// carry the observed depth as a numeric payload (dashboards are keyed on that
// shape); policy and absence violations carry text.
type Reason struct {
	Depth   int
	Text    string
	Numeric bool
}

// DepthReason records a depth-threshold violation with the observed depth.
func DepthReason(depth int) Reason {
	return Reason{Depth: depth, Numeric: true}
}

// TextReason records a textual violation such as "Wrong queue policy".
func TextReason(text string) Reason {
	return Reason{Text: text}
}

// String returns the bare payload: the depth for numeric reasons, the text
// otherwise. Quoting decisions belong to the output renderer.
func (r Reason) String() string {
	if r.Numeric {
		return strconv.Itoa(r.Depth)
	}
	return r.Text
}

// Stat is a per-queue stats entry: the observed depth, or a diagnostic
// message when no depth could be observed (fetch failure).
type Stat struct {
	Depth   int    `json:"depth"`
	Message string `json:"message,omitempty"`
}

// DepthStat records an observed queue depth.
func DepthStat(depth int) Stat {
	return Stat{Depth: depth}
}

// MessageStat records a diagnostic message in place of a depth.
func MessageStat(msg string) Stat {
	return Stat{Message: msg}
}

// QueueVerdict is the outcome of checking one fetched queue against its
// resolved rule.
type QueueVerdict struct {
	Name      string
	Depth     int
	Warnings  []Reason
	Criticals []Reason
}

// Severity returns the verdict's classification. Critical dominates warning.
func (v QueueVerdict) Severity() Severity {
	switch {
	case len(v.Criticals) > 0:
		return SeverityCritical
	case len(v.Warnings) > 0:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// RunResult aggregates one evaluation pass over all fetched queues.
//
// Invariants: a queue appears in at most one of CriticalQueues/WarningQueues
// (critical wins); Stats has an entry for every fetched queue; configured
// queues absent from the fetch appear only in CriticalQueues.
type RunResult struct {
	Stats          map[string]Stat     `json:"stats"`
	CriticalQueues map[string][]Reason `json:"critical_queues,omitempty"`
	WarningQueues  map[string][]Reason `json:"warning_queues,omitempty"`
}

// NewRunResult returns a RunResult with initialised maps.
func NewRunResult() RunResult {
	return RunResult{
		Stats:          make(map[string]Stat),
		CriticalQueues: make(map[string][]Reason),
		WarningQueues:  make(map[string][]Reason),
	}
}

// Outcome is the final result of one check run: a severity plus the full
// per-queue detail. It is returned by the evaluator, never panicked, and a
// single value carries both what to print and what exit code to use.
type Outcome struct {
	Severity Severity
	Result   RunResult
}

// Violations returns the bucket matching the final severity: the critical
// queues on a critical outcome, the warning queues on a warning outcome, nil
// on OK. This is what the status line renders.
func (o Outcome) Violations() map[string][]Reason {
	switch o.Severity {
	case SeverityCritical:
		return o.Result.CriticalQueues
	case SeverityWarning:
		return o.Result.WarningQueues
	default:
		return nil
	}
}

// ViolationNames returns the violating queue names in sorted order so the
// status line is stable between runs.
func (o Outcome) ViolationNames() []string {
	violations := o.Violations()
	names := make([]string, 0, len(violations))
	for name := range violations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
