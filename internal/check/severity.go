// Package check contains the threshold evaluation and severity aggregation
// logic: pure functions that turn a filesystem snapshot into a monitoring
// verdict.
package check

// Severity is the verdict level of a single check or of the whole run.
// Higher values take precedence when verdicts are merged, and the numeric
// value doubles as the process exit status.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityUnknown
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	case SeverityUnknown:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// Max returns the higher-precedence of the two severities.
func (s Severity) Max(other Severity) Severity {
	if other > s {
		return other
	}
	return s
}

// ExitCode returns the process exit status for this severity.
func (s Severity) ExitCode() int {
	return int(s)
}

// Result is the outcome of one evaluator run. Messages carry deviations
// (empty when the check is clean), Summary carries statistics that are
// reported regardless of the verdict. Both preserve evaluation order.
type Result struct {
	Severity Severity
	Messages []string
	Summary  []string
}
