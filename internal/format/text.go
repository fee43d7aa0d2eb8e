package format

import (
	"fmt"
	"io"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/coverage"
)

// TextFormatter formats analysis results as plain text for console output.
// Groups uncovered lines by file and shows line ranges where possible.
type TextFormatter struct{}

// Format formats the analysis result as plain text.
func (f *TextFormatter) Format(result *coverage.Result, w io.Writer) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}

	if !result.HasUncoveredLines() {
		if result.TotalAdded == 0 {
			_, err := fmt.Fprintln(w, "No lines added in diff")
			return err
		}
		_, err := fmt.Fprintf(w, "All %d added lines are covered!\n", result.TotalAdded)
		return err
	}

	fmt.Fprintln(w, "Uncovered lines in diff:")
	fmt.Fprintln(w)

	for _, file := range result.UncoveredFiles() {
		fr := result.Files[file]
		fmt.Fprintf(w, "%s (%.1f%%)\n", file, percent(len(fr.Covered), fr.Total()))
		fmt.Fprintf(w, "  Lines: %s\n", formatLineRanges(fr.Uncovered))
		fmt.Fprintln(w)
	}

	_, err := fmt.Fprintf(w, "Summary: %d uncovered lines out of %d added lines (%.1f%% coverage)\n",
		result.TotalUncovered, result.TotalAdded, result.Percent())
	return err
}

func (f *TextFormatter) Extension() string   { return "txt" }
func (f *TextFormatter) ContentType() string { return "text/plain" }
