package coverage

import (
	"bytes"
	"fmt"

	"golang.org/x/tools/cover"
)

// Profile represents a single coverage profile for a file.
type Profile struct {
	FileName string
	Mode     string
	Blocks   []ProfileBlock
}

// ProfileBlock represents a single block of code coverage.
type ProfileBlock struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	NumStmt   int
	Count     int
}

// ParseProfiles parses coverage data in the format written by
// `go test -coverprofile`.
func ParseProfiles(data []byte) ([]*Profile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("coverage data is empty")
	}

	profiles, err := cover.ParseProfilesFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse coverage profiles: %w", err)
	}

	result := make([]*Profile, 0, len(profiles))
	for _, p := range profiles {
		profile := &Profile{
			FileName: p.FileName,
			Mode:     p.Mode,
			Blocks:   make([]ProfileBlock, len(p.Blocks)),
		}
		for i, b := range p.Blocks {
			profile.Blocks[i] = ProfileBlock{
				StartLine: b.StartLine,
				StartCol:  b.StartCol,
				EndLine:   b.EndLine,
				EndCol:    b.EndCol,
				NumStmt:   b.NumStmt,
				Count:     b.Count,
			}
		}
		result = append(result, profile)
	}

	return result, nil
}

// instrumented reports whether line falls inside any block of p.
func (p *Profile) instrumented(line int) bool {
	for _, b := range p.Blocks {
		if line >= b.StartLine && line <= b.EndLine {
			return true
		}
	}
	return false
}

// covered reports whether line falls inside a block that ran at least once.
func (p *Profile) covered(line int) bool {
	for _, b := range p.Blocks {
		if line >= b.StartLine && line <= b.EndLine && b.Count > 0 {
			return true
		}
	}
	return false
}
