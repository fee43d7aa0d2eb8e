package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/coverage"
)

// JSONFormatter formats analysis results as a JSON document.
type JSONFormatter struct{}

type jsonReport struct {
	TotalAdded     int        `json:"total_added"`
	TotalCovered   int        `json:"total_covered"`
	TotalUncovered int        `json:"total_uncovered"`
	Percent        float64    `json:"percent"`
	Files          []jsonFile `json:"files"`
}

type jsonFile struct {
	Path      string  `json:"path"`
	Percent   float64 `json:"percent"`
	Covered   []int   `json:"covered"`
	Uncovered []int   `json:"uncovered"`
}

// Format writes the analysis result as indented JSON.
func (f *JSONFormatter) Format(result *coverage.Result, w io.Writer) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}

	report := jsonReport{
		TotalAdded:     result.TotalAdded,
		TotalCovered:   result.TotalCovered,
		TotalUncovered: result.TotalUncovered,
		Percent:        result.Percent(),
		Files:          []jsonFile{},
	}
	for _, file := range result.SortedFiles() {
		fr := result.Files[file]
		report.Files = append(report.Files, jsonFile{
			Path:      file,
			Percent:   percent(len(fr.Covered), fr.Total()),
			Covered:   nonNil(fr.Covered),
			Uncovered: nonNil(fr.Uncovered),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func (f *JSONFormatter) Extension() string   { return "json" }
func (f *JSONFormatter) ContentType() string { return "application/json" }

func nonNil(lines []int) []int {
	if lines == nil {
		return []int{}
	}
	return lines
}
