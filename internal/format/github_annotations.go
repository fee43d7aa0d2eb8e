package format

import (
	"fmt"
	"io"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/coverage"
)

// GitHubAnnotationsFormatter formats analysis results as GitHub Actions workflow commands.
// Outputs one ::notice annotation per block of consecutive uncovered lines.
type GitHubAnnotationsFormatter struct{}

// Format formats the analysis result as GitHub Actions annotations.
func (f *GitHubAnnotationsFormatter) Format(result *coverage.Result, w io.Writer) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}

	for _, file := range result.UncoveredFiles() {
		for _, r := range groupIntoRanges(result.Files[file].Uncovered) {
			var err error
			if r.start == r.end {
				_, err = fmt.Fprintf(w, "::notice file=%s,line=%d,title=Uncovered line::Line %d is not covered by tests\n",
					file, r.start, r.start)
			} else {
				_, err = fmt.Fprintf(w, "::notice file=%s,line=%d,endLine=%d,title=Uncovered lines::Lines %d-%d are not covered by tests\n",
					file, r.start, r.end, r.start, r.end)
			}
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (f *GitHubAnnotationsFormatter) Extension() string   { return "txt" }
func (f *GitHubAnnotationsFormatter) ContentType() string { return "text/plain" }
