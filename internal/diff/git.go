package diff

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/command"
)

const (
	// DefaultCompareBranch is the branch committed changes are compared against
	// when no branch is given.
	DefaultCompareBranch = "origin/master"

	// DefaultGitPath is the git program used when none is configured.
	DefaultGitPath = "git"
)

// ErrGitDiff identifies a GitDiffError with errors.Is.
var ErrGitDiff = errors.New("git diff failed")

// GitDiffError is returned when git diff could not produce a clean diff.
// The message is the command executor's message, unchanged.
type GitDiffError struct {
	Err error
}

func (e *GitDiffError) Error() string {
	return e.Err.Error()
}

func (e *GitDiffError) Unwrap() error {
	return e.Err
}

// Is reports ErrGitDiff as a match so callers need not know the concrete type.
func (e *GitDiffError) Is(target error) bool {
	return target == ErrGitDiff
}

// backend produces diff text for a git diff argument list.
type backend interface {
	diff(ctx context.Context, args []string) (string, error)
}

// fixedBackend ignores the arguments and returns pre-loaded text.
type fixedBackend struct {
	text string
}

func (b fixedBackend) diff(context.Context, []string) (string, error) {
	return b.text, nil
}

// liveBackend runs git through a command executor on every call.
type liveBackend struct {
	gitPath  string
	executor command.Executor
}

func (b liveBackend) diff(ctx context.Context, args []string) (string, error) {
	argv := make([]string, 0, len(args)+4)
	argv = append(argv, b.gitPath, "-c", "diff.mnemonicprefix=no", "diff")
	argv = append(argv, args...)

	out, err := b.executor.Execute(ctx, argv)
	if err != nil {
		return "", &GitDiffError{Err: err}
	}
	return out, nil
}

// GitDiffTool is a thin wrapper around a subset of `git diff`.
//
// A tool is either fixed, returning the same pre-loaded diff for every query,
// or live, running git once per query. The choice is made at construction and
// never changes.
type GitDiffTool struct {
	backend backend
}

// Option configures a live GitDiffTool.
type Option func(*liveBackend)

// WithGitPath sets the git program to run.
func WithGitPath(path string) Option {
	return func(b *liveBackend) {
		if path != "" {
			b.gitPath = path
		}
	}
}

// NewGitDiffTool creates a live GitDiffTool that runs git via executor.
func NewGitDiffTool(executor command.Executor, opts ...Option) *GitDiffTool {
	b := liveBackend{
		gitPath:  DefaultGitPath,
		executor: executor,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return &GitDiffTool{backend: b}
}

// NewFixedGitDiffTool creates a GitDiffTool that answers every query with text.
func NewFixedGitDiffTool(text string) *GitDiffTool {
	return &GitDiffTool{backend: fixedBackend{text: text}}
}

// NewGitDiffToolFromFile reads a pre-captured diff from path and returns a fixed
// GitDiffTool. Trailing newlines are stripped from the file contents.
func NewGitDiffToolFromFile(path string) (*GitDiffTool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read diff file %s: %w", path, err)
	}
	return NewFixedGitDiffTool(strings.TrimRight(string(data), "\n")), nil
}

// Open returns a fixed tool when diffFile is set, otherwise a live tool.
func Open(diffFile string, executor command.Executor, opts ...Option) (*GitDiffTool, error) {
	if diffFile != "" {
		return NewGitDiffToolFromFile(diffFile)
	}
	return NewGitDiffTool(executor, opts...), nil
}

// IsFixed reports whether the tool returns a pre-loaded diff.
func (t *GitDiffTool) IsFixed() bool {
	_, ok := t.backend.(fixedBackend)
	return ok
}

// DiffCommitted returns the diff of changes committed on HEAD but not yet in
// compareBranch. An empty compareBranch means DefaultCompareBranch.
func (t *GitDiffTool) DiffCommitted(ctx context.Context, compareBranch string) (string, error) {
	if compareBranch == "" {
		compareBranch = DefaultCompareBranch
	}
	return t.backend.diff(ctx, []string{compareBranch + "...HEAD", "--no-color", "--no-ext-diff"})
}

// DiffUnstaged returns the diff of working tree changes not yet staged.
func (t *GitDiffTool) DiffUnstaged(ctx context.Context) (string, error) {
	return t.backend.diff(ctx, []string{"--no-color", "--no-ext-diff"})
}

// DiffStaged returns the diff of changes staged for the next commit.
func (t *GitDiffTool) DiffStaged(ctx context.Context) (string, error) {
	return t.backend.diff(ctx, []string{"--cached", "--no-color", "--no-ext-diff"})
}
