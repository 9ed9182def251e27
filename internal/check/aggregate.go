package check

import (
	"fmt"
	"strings"
)

// Report is the final rendered verdict for one run: the overall severity, an
// optional deviation line and an always-present statistics line.
type Report struct {
	Severity Severity
	Message  string
	Summary  string
}

// Aggregate merges evaluator results into the final report. The overall
// severity is the maximum across all results; messages and summaries are
// concatenated in the order the results were passed. The message line is
// prefixed with the severity name when any evaluator reported a deviation,
// and replaced by a plain OK banner otherwise.
func Aggregate(results ...Result) Report {
	rep := Report{Severity: SeverityOK}
	var messages, summaries []string
	for _, r := range results {
		rep.Severity = rep.Severity.Max(r.Severity)
		messages = append(messages, r.Messages...)
		summaries = append(summaries, r.Summary...)
	}
	if len(messages) == 0 {
		rep.Message = "OK"
	} else {
		rep.Message = fmt.Sprintf("%s: %s", rep.Severity, strings.Join(messages, ", "))
	}
	rep.Summary = strings.Join(summaries, ", ")
	return rep
}
