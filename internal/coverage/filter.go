package coverage

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// PathFilter decides which diff paths take part in the analysis using
// doublestar globs ("internal/**/*.go", "**/*_gen.go").
type PathFilter struct {
	include []string
	exclude []string
}

// NewPathFilter validates the patterns and returns a filter. With no include
// patterns every path is included unless it matches an exclude pattern.
func NewPathFilter(include, exclude []string) (*PathFilter, error) {
	for _, p := range include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern: %q", p)
		}
	}
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", p)
		}
	}
	return &PathFilter{include: include, exclude: exclude}, nil
}

// Match reports whether path passes the filter.
func (f *PathFilter) Match(path string) bool {
	if len(f.include) > 0 && !matchAny(f.include, path) {
		return false
	}
	return !matchAny(f.exclude, path)
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		// Patterns are validated up front, so the error is always nil.
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
