package diff

import (
	"context"
	"fmt"
	"strings"
)

// Scope selects which changes a ScopedSource asks git for.
type Scope string

const (
	ScopeCommitted Scope = "committed"
	ScopeStaged    Scope = "staged"
	ScopeUnstaged  Scope = "unstaged"
)

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeCommitted, ScopeStaged, ScopeUnstaged:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("invalid diff scope: %s (must be committed, staged, or unstaged)", s)
	}
}

// ScopedSource implements DiffSource with a single GitDiffTool query.
type ScopedSource struct {
	Tool  *GitDiffTool
	Scope Scope
	// CompareBranch is only used for ScopeCommitted.
	CompareBranch string
}

// NewScopedSource creates a new ScopedSource.
func NewScopedSource(tool *GitDiffTool, scope Scope, compareBranch string) *ScopedSource {
	return &ScopedSource{
		Tool:          tool,
		Scope:         scope,
		CompareBranch: compareBranch,
	}
}

// GetDiff runs the query selected by Scope.
func (s *ScopedSource) GetDiff(ctx context.Context) ([]byte, error) {
	var (
		out string
		err error
	)
	switch s.Scope {
	case ScopeCommitted:
		out, err = s.Tool.DiffCommitted(ctx, s.CompareBranch)
	case ScopeStaged:
		out, err = s.Tool.DiffStaged(ctx)
	case ScopeUnstaged:
		out, err = s.Tool.DiffUnstaged(ctx)
	default:
		return nil, fmt.Errorf("invalid diff scope: %s", s.Scope)
	}
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// CombinedSource implements DiffSource by joining the committed, staged and
// unstaged diffs, in that order. This is what a developer sees as "everything
// on my branch" before pushing.
type CombinedSource struct {
	Tool           *GitDiffTool
	CompareBranch  string
	IgnoreStaged   bool
	IgnoreUnstaged bool
}

// NewCombinedSource creates a new CombinedSource.
func NewCombinedSource(tool *GitDiffTool, compareBranch string, ignoreStaged, ignoreUnstaged bool) *CombinedSource {
	return &CombinedSource{
		Tool:           tool,
		CompareBranch:  compareBranch,
		IgnoreStaged:   ignoreStaged,
		IgnoreUnstaged: ignoreUnstaged,
	}
}

// GetDiff returns the combined diff. A fixed tool's text is returned once.
func (s *CombinedSource) GetDiff(ctx context.Context) ([]byte, error) {
	if s.Tool.IsFixed() {
		out, err := s.Tool.DiffCommitted(ctx, s.CompareBranch)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}

	committed, err := s.Tool.DiffCommitted(ctx, s.CompareBranch)
	if err != nil {
		return nil, err
	}
	parts := []string{committed}

	if !s.IgnoreStaged {
		staged, err := s.Tool.DiffStaged(ctx)
		if err != nil {
			return nil, err
		}
		parts = append(parts, staged)
	}

	if !s.IgnoreUnstaged {
		unstaged, err := s.Tool.DiffUnstaged(ctx)
		if err != nil {
			return nil, err
		}
		parts = append(parts, unstaged)
	}

	return []byte(joinDiffs(parts)), nil
}

// joinDiffs concatenates non-empty diffs, one newline between each.
func joinDiffs(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimRight(p, "\n")
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// Describe returns a short human-readable description of a source for logs.
func Describe(src DiffSource) string {
	switch s := src.(type) {
	case *ScopedSource:
		if s.Scope == ScopeCommitted {
			return fmt.Sprintf("committed changes vs %s", branchOrDefault(s.CompareBranch))
		}
		return fmt.Sprintf("%s changes", s.Scope)
	case *CombinedSource:
		if s.Tool.IsFixed() {
			return "diff file"
		}
		desc := fmt.Sprintf("changes vs %s", branchOrDefault(s.CompareBranch))
		switch {
		case s.IgnoreStaged && s.IgnoreUnstaged:
			return desc + " (committed only)"
		case s.IgnoreStaged:
			return desc + " (excluding staged)"
		case s.IgnoreUnstaged:
			return desc + " (excluding unstaged)"
		}
		return desc
	default:
		return "custom diff source"
	}
}

func branchOrDefault(branch string) string {
	if branch == "" {
		return DefaultCompareBranch
	}
	return branch
}
