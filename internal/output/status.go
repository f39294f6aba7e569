// Package output renders the single status line consumed by the monitoring
// host. The line is the whole stdout contract of the process; everything else
// the check has to say goes to stderr.
package output

import (
	"fmt"
	"strings"

	"github.com/rabbitops/rmqcheck/internal/config"
	"github.com/rabbitops/rmqcheck/internal/models"
)

// okLine is the full OK status line; existing dashboards match it verbatim.
const okLine = "OK - all lengths fine."

// StatusLine renders the outcome in the requested format.
//
// OK outcomes render the fixed OK line. Warning and critical outcomes render
// the severity prefix followed by one name(reasons) group per violating
// queue, space separated in sorted name order, with a trailing period:
//
//	CRITICAL - foo([1500]) jobs_slow(['Wrong queue policy']).
//
// The legacy format reproduces the historical python-list rendering of the
// reasons sequence byte-for-byte (numbers bare, strings single-quoted); the
// plain format joins reasons with ", " and drops brackets and quotes.
func StatusLine(outcome models.Outcome, format config.OutputFormat) string {
	if outcome.Severity == models.SeverityOK {
		return okLine
	}

	violations := outcome.Violations()
	groups := make([]string, 0, len(violations))
	for _, name := range outcome.ViolationNames() {
		groups = append(groups, fmt.Sprintf("%s(%s)", name, renderReasons(violations[name], format)))
	}
	return fmt.Sprintf("%s - %s.", outcome.Severity, strings.Join(groups, " "))
}

func renderReasons(reasons []models.Reason, format config.OutputFormat) string {
	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		if format == config.OutputLegacy && !reason.Numeric {
			parts[i] = "'" + reason.Text + "'"
		} else {
			parts[i] = reason.String()
		}
	}
	joined := strings.Join(parts, ", ")
	if format == config.OutputLegacy {
		return "[" + joined + "]"
	}
	return joined
}
