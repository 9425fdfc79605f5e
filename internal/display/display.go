// Package display provides human-readable names for machine codes and
// renders the run summary table.
//
// Rule: code is for machines, words are for humans. Use these functions in
// CLI output and logs; keep raw codes for JSON fields and comparisons.
package display

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"downcheck/internal/pipeline"
)

var statuses = map[pipeline.Status]string{
	pipeline.StatusPassed:     "Passed",
	pipeline.StatusFailed:     "Failed",
	pipeline.StatusBuildError: "Build Error",
}

// Status returns the human-readable name for a run status code.
// Unknown codes are returned as-is.
func Status(code pipeline.Status) string {
	if name, ok := statuses[code]; ok {
		return name
	}
	return string(code)
}

// StatusMark returns "✓" for a passed result and "✗" otherwise.
func StatusMark(code pipeline.Status) string {
	if code == pipeline.StatusPassed {
		return "✓"
	}
	return "✗"
}

// FmtDuration formats a duration as "Xm Ys" or "Ys".
func FmtDuration(d time.Duration) string {
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// Summary renders the per-project outcome table for terminal output.
func Summary(r *pipeline.Report) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"", "Project", "Status", "Duration", "Detail"})
	for _, res := range r.Results {
		w.AppendRow(table.Row{
			StatusMark(res.Status),
			res.Project,
			Status(res.Status),
			FmtDuration(res.Duration),
			Truncate(res.Detail, 60),
		})
	}
	overall := "FAILED"
	if r.OK() {
		overall = "PASSED"
	}
	w.AppendFooter(table.Row{"", r.Library, overall, FmtDuration(r.Elapsed), ""})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignCenter},
		{Number: 5, WidthMax: 60},
	})
	return w.Render()
}
