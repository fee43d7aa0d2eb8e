package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/command"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/coverage"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/diff"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/format"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/queue"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/storage"
)

// ErrBelowThreshold is returned when diff coverage is under Config.FailUnder.
var ErrBelowThreshold = errors.New("diff coverage below threshold")

// Config holds configuration for a diff coverage run.
type Config struct {
	// CoverageDir is the directory containing coverage files (*.out)
	CoverageDir string
	// Format is the output format (Text, Markdown, GitHubAnnotations, JSON)
	Format string
	// CompareBranch is recorded on published events.
	CompareBranch string
	// FailUnder fails the run below this percentage; 0 disables the check.
	FailUnder float64
	// Org, Repo and Branch identify the stored report and published event.
	Org    string
	Repo   string
	Branch string
}

// Runner computes coverage of the lines added in a diff.
type Runner struct {
	config     Config
	diffSource diff.DiffSource
	logger     *slog.Logger
	out        io.Writer
	store      storage.ReportStore
	publisher  queue.Publisher
	filter     *coverage.PathFilter
}

// Option is a functional option for configuring Runner.
type Option func(*Runner)

// WithDiffSource sets a custom DiffSource for the Runner.
func WithDiffSource(ds diff.DiffSource) Option {
	return func(r *Runner) {
		r.diffSource = ds
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithOutput sets where the formatted report is written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithStore uploads each report to store.
func WithStore(store storage.ReportStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithPublisher announces each report on publisher.
func WithPublisher(p queue.Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithPathFilter restricts which diff paths are analyzed.
func WithPathFilter(f *coverage.PathFilter) Option {
	return func(r *Runner) {
		r.filter = f
	}
}

// NewRunner creates a new Runner with the given configuration.
// Without WithDiffSource it diffs the git repository in the working directory.
func NewRunner(config Config, opts ...Option) *Runner {
	r := &Runner{
		config: config,
		logger: slog.Default(),
		out:    os.Stdout,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.diffSource == nil {
		tool := diff.NewGitDiffTool(command.NewExecExecutor(""))
		r.diffSource = diff.NewCombinedSource(tool, config.CompareBranch, false, false)
	}

	return r
}

// Run executes the diff coverage workflow and returns the analysis result.
// When coverage is below FailUnder the result is returned together with
// an error wrapping ErrBelowThreshold.
func (r *Runner) Run(ctx context.Context) (*coverage.Result, error) {
	r.logger.Info("Collecting diff", "source", diff.Describe(r.diffSource))

	diffData, err := r.diffSource.GetDiff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get diff: %w", err)
	}

	empty := &coverage.Result{Files: map[string]*coverage.FileResult{}}

	if len(bytes.TrimSpace(diffData)) == 0 {
		fmt.Fprintln(r.out, "No changes detected in diff")
		return empty, nil
	}

	fileDiffs, err := coverage.ParseDiff(diffData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	addedLines := coverage.AddedLines(fileDiffs, r.filter)
	if len(addedLines) == 0 {
		fmt.Fprintln(r.out, "No Go files changed in diff")
		return empty, nil
	}
	r.logger.Debug("Parsed diff", "files", len(fileDiffs), "go_files", len(addedLines))

	profiles, err := r.readAndMergeCoverageFiles()
	if err != nil {
		return nil, err
	}

	result := coverage.Analyze(profiles, addedLines)
	r.logger.Info("Analyzed diff coverage",
		"added", result.TotalAdded,
		"covered", result.TotalCovered,
		"uncovered", result.TotalUncovered,
		"percent", fmt.Sprintf("%.1f", result.Percent()))

	formatter, err := format.New(r.config.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	var report bytes.Buffer
	if err := formatter.Format(result, &report); err != nil {
		return nil, fmt.Errorf("failed to format results: %w", err)
	}
	if _, err := r.out.Write(report.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	objectPath, err := r.saveReport(ctx, formatter, report.Bytes())
	if err != nil {
		return nil, err
	}

	if err := r.publish(ctx, result, objectPath); err != nil {
		return nil, err
	}

	if r.config.FailUnder > 0 && result.Percent() < r.config.FailUnder {
		return result, fmt.Errorf("%w: %.1f%% is below %.1f%%", ErrBelowThreshold, result.Percent(), r.config.FailUnder)
	}

	return result, nil
}

// saveReport uploads the rendered report and returns its object path.
// It does nothing without a store.
func (r *Runner) saveReport(ctx context.Context, formatter format.Formatter, data []byte) (string, error) {
	if r.store == nil {
		return "", nil
	}

	key := storage.ReportKey{
		Org:    r.config.Org,
		Repo:   r.config.Repo,
		Branch: r.config.Branch,
		Ext:    formatter.Extension(),
	}
	if err := r.store.SaveReport(ctx, key, data, formatter.ContentType()); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	objectPath := storage.ObjectPath(key)
	r.logger.Info("Saved report", "path", objectPath)
	return objectPath, nil
}

// publish announces the result. It does nothing without a publisher.
func (r *Runner) publish(ctx context.Context, result *coverage.Result, objectPath string) error {
	if r.publisher == nil {
		return nil
	}

	event := queue.NewReportEvent(r.config.Org, r.config.Repo, r.config.Branch)
	event.CompareBranch = r.config.CompareBranch
	event.TotalAdded = result.TotalAdded
	event.TotalCovered = result.TotalCovered
	event.TotalUncovered = result.TotalUncovered
	event.Percent = result.Percent()
	event.ObjectPath = objectPath

	if err := r.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish report event: %w", err)
	}

	r.logger.Info("Published report event", "id", event.ID)
	return nil
}

// readAndMergeCoverageFiles reads all *.out files from the coverage directory
// and merges them into a single set of profiles.
func (r *Runner) readAndMergeCoverageFiles() ([]*coverage.Profile, error) {
	dir := r.config.CoverageDir

	dirInfo, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("coverage directory not found: %s\n\nRun tests with coverage first:\n  go test ./... -coverprofile=%s/coverage.out",
				dir, dir)
		}
		return nil, fmt.Errorf("failed to access coverage directory: %w", err)
	}

	if !dirInfo.IsDir() {
		return nil, fmt.Errorf("coverage path is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage directory: %w", err)
	}

	var coverageFiles []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".out") {
			continue
		}
		coverageFiles = append(coverageFiles, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(coverageFiles)

	if len(coverageFiles) == 0 {
		return nil, fmt.Errorf("no coverage files (*.out) found in directory: %s\n\nRun tests with coverage first:\n  go test ./... -coverprofile=%s/coverage.out",
			dir, dir)
	}

	r.logger.Info("Merging coverage files", "count", len(coverageFiles))

	var allProfiles []*coverage.Profile
	for _, file := range coverageFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read coverage file %s: %w", file, err)
		}

		profiles, err := coverage.ParseProfiles(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse coverage file %s: %w", file, err)
		}

		allProfiles = append(allProfiles, profiles...)
	}

	merged, err := coverage.MergeProfiles(allProfiles)
	if err != nil {
		return nil, fmt.Errorf("failed to merge coverage profiles: %w", err)
	}

	return merged, nil
}
