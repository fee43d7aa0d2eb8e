package format

import (
	"fmt"
	"io"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/coverage"
)

// MarkdownFormatter formats analysis results as Markdown.
// Outputs a table with per-file coverage and a summary.
type MarkdownFormatter struct{}

// Format formats the analysis result as Markdown.
func (f *MarkdownFormatter) Format(result *coverage.Result, w io.Writer) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}

	fmt.Fprintln(w, "## Diff Coverage")
	fmt.Fprintln(w)

	if result.TotalAdded == 0 {
		_, err := fmt.Fprintln(w, "No lines added in diff")
		return err
	}

	fmt.Fprintln(w, "| File | Coverage | Missing |")
	fmt.Fprintln(w, "|------|---------:|---------|")

	for _, file := range result.SortedFiles() {
		fr := result.Files[file]
		missing := formatLineRanges(fr.Uncovered)
		if missing == "" {
			missing = "-"
		}
		fmt.Fprintf(w, "| `%s` | %.1f%% | %s |\n", file, percent(len(fr.Covered), fr.Total()), missing)
	}

	fmt.Fprintln(w)

	_, err := fmt.Fprintf(w, "**Summary:** %d uncovered lines out of %d added (%.1f%% coverage)\n",
		result.TotalUncovered, result.TotalAdded, result.Percent())
	return err
}

func (f *MarkdownFormatter) Extension() string   { return "md" }
func (f *MarkdownFormatter) ContentType() string { return "text/markdown" }
