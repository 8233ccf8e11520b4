package main

import (
	"fmt"
	"io"

	"ebb/internal/observ"
)

// printPhaseTimings renders the phase report one line per phase. Notes
// produced by the phases (counts, cache verdicts) ride along in parens.
func printPhaseTimings(out io.Writer, report *observ.Report) {
	if out == nil || report == nil || len(report.Phases) == 0 {
		return
	}
	for _, ph := range report.Phases {
		if ph.Note != "" {
			fmt.Fprintf(out, "%s %.1f ms (%s)\n", ph.Name, ph.DurationMS, ph.Note)
			continue
		}
		fmt.Fprintf(out, "%s %.1f ms\n", ph.Name, ph.DurationMS)
	}
	fmt.Fprintf(out, "total %.1f ms\n", report.TotalMS)
}
