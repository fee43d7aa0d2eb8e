package coverage

import (
	"sort"
	"strings"
)

// FileResult holds the coverage of a single file's added lines.
// Only instrumented lines are counted; comments and blank lines are ignored.
type FileResult struct {
	Covered   []int
	Uncovered []int
}

// Total returns the number of instrumented added lines in the file.
func (f *FileResult) Total() int {
	return len(f.Covered) + len(f.Uncovered)
}

// Result contains the results of coverage analysis.
type Result struct {
	// Files maps diff paths to their coverage. Files without any
	// instrumented added line are not present.
	Files map[string]*FileResult

	TotalAdded     int
	TotalCovered   int
	TotalUncovered int
}

// Analyze cross-references coverage profiles with the added lines of a diff.
// Coverage uses module import paths while the diff uses repository-relative
// paths, so a profile matches a diff file when its path ends with it.
// Diff files without a profile are left out. When several profiles match one
// diff file, the first in profile order decides it, even if none of its added
// lines are instrumented.
func Analyze(profiles []*Profile, addedLines map[string][]int) *Result {
	result := &Result{Files: make(map[string]*FileResult)}
	matched := make(map[string]bool)

	for _, profile := range profiles {
		diffFile, lines, ok := matchDiffFile(profile.FileName, addedLines)
		if !ok {
			continue
		}

		if matched[diffFile] {
			continue
		}
		matched[diffFile] = true

		fr := &FileResult{}
		for _, line := range lines {
			if !profile.instrumented(line) {
				continue
			}
			if profile.covered(line) {
				fr.Covered = append(fr.Covered, line)
			} else {
				fr.Uncovered = append(fr.Uncovered, line)
			}
		}
		if fr.Total() > 0 {
			result.Files[diffFile] = fr
		}
	}

	for _, fr := range result.Files {
		result.TotalCovered += len(fr.Covered)
		result.TotalUncovered += len(fr.Uncovered)
	}
	result.TotalAdded = result.TotalCovered + result.TotalUncovered

	return result
}

// matchDiffFile finds the diff path a profile file name refers to.
func matchDiffFile(profileFile string, addedLines map[string][]int) (string, []int, bool) {
	if lines, ok := addedLines[profileFile]; ok {
		return profileFile, lines, true
	}

	// Prefer the longest suffix so "a/b/x.go" wins over "b/x.go".
	var (
		best      string
		bestLines []int
	)
	for diffFile, lines := range addedLines {
		if strings.HasSuffix(profileFile, "/"+diffFile) && len(diffFile) > len(best) {
			best, bestLines = diffFile, lines
		}
	}
	return best, bestLines, best != ""
}

// Percent returns the share of covered added lines, 0-100.
// A diff with no instrumented added lines is fully covered.
func (r *Result) Percent() float64 {
	if r.TotalAdded == 0 {
		return 100
	}
	return float64(r.TotalCovered) / float64(r.TotalAdded) * 100
}

// HasUncoveredLines returns true if there are any uncovered lines in the result.
func (r *Result) HasUncoveredLines() bool {
	return r.TotalUncovered > 0
}

// SortedFiles returns every analyzed file, sorted.
func (r *Result) SortedFiles() []string {
	files := make([]string, 0, len(r.Files))
	for file := range r.Files {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// UncoveredFiles returns the sorted files that have uncovered lines.
func (r *Result) UncoveredFiles() []string {
	var files []string
	for _, file := range r.SortedFiles() {
		if len(r.Files[file].Uncovered) > 0 {
			files = append(files, file)
		}
	}
	return files
}
