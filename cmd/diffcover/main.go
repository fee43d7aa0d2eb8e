package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/command"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/config"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/coverage"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/diff"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/queue"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/runner"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/server"
	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/storage"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cliFlags holds the values of one command tree's flags.
type cliFlags struct {
	configPath     string
	scope          string
	gitPath        string
	workDir        string
	compareBranch  string
	diffFile       string
	coverageDir    string
	outputFormat   string
	ignoreStaged   bool
	ignoreUnstaged bool
	include        []string
	exclude        []string
	failUnder      float64
	logLevel       string
	port           int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the diffcover command tree with fresh flag state.
func newRootCmd() *cobra.Command {
	f := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:   "diffcover",
		Short: "diffcover - Go test coverage of the lines you changed",
		Long: `diffcover reports which lines added on your branch are not covered by tests.

It diffs the working tree against a compare branch (committed, staged and
unstaged changes), reads the Go coverage profiles (*.out) in the coverage
directory, and prints the uncovered added lines.

Settings come from .diffcover.yaml, then DIFFCOVER_* environment variables,
then flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored reports over HTTP",
		Long: `Serve stored diff coverage reports from the configured storage backend.

Endpoints:
  GET /health
  GET /reports?prefix=ORG/REPO/
  GET /reports/ORG/REPO/BRANCH?ext=md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, f)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "diffcover %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&f.configPath, "config", "", "Config file (default .diffcover.yaml if present)")
	persistent.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, or error")

	serveCmd.Flags().IntVar(&f.port, "port", 0, "HTTP server port (default 8080)")

	flags := rootCmd.Flags()
	flags.StringVar(&f.scope, "scope", "", "Only diff one scope: committed, staged, or unstaged")
	flags.StringVar(&f.gitPath, "git-path", "", "Git executable")
	flags.StringVar(&f.workDir, "work-dir", "", "Repository directory")
	flags.StringVar(&f.compareBranch, "compare-branch", "", "Branch to compare against (default origin/master)")
	flags.StringVar(&f.diffFile, "diff-file", "", "Read the diff from this file instead of running git")
	flags.StringVar(&f.coverageDir, "coverage-dir", "", "Directory containing *.out coverage profiles (default coverage)")
	flags.StringVar(&f.outputFormat, "format", "", "Output format: Text, Markdown, GitHubAnnotations, or JSON")
	flags.BoolVar(&f.ignoreStaged, "ignore-staged", false, "Leave staged changes out of the diff")
	flags.BoolVar(&f.ignoreUnstaged, "ignore-unstaged", false, "Leave unstaged changes out of the diff")
	flags.StringSliceVar(&f.include, "include", nil, "Only analyze paths matching these globs")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "Skip paths matching these globs")
	flags.Float64Var(&f.failUnder, "fail-under", 0, "Exit non-zero when diff coverage is below this percentage")

	return rootCmd
}

// applyFlags overrides environment variables with CLI flags that were explicitly set.
func applyFlags(cmd *cobra.Command, f *cliFlags) {
	set := func(flag, env, value string) {
		if cmd.Flags().Changed(flag) {
			os.Setenv(env, value)
		}
	}

	set("git-path", "DIFFCOVER_GIT_PATH", f.gitPath)
	set("work-dir", "DIFFCOVER_WORK_DIR", f.workDir)
	set("compare-branch", "DIFFCOVER_COMPARE_BRANCH", f.compareBranch)
	set("diff-file", "DIFFCOVER_DIFF_FILE", f.diffFile)
	set("coverage-dir", "DIFFCOVER_COVERAGE_DIR", f.coverageDir)
	set("format", "DIFFCOVER_FORMAT", f.outputFormat)
	set("ignore-staged", "DIFFCOVER_IGNORE_STAGED", fmt.Sprintf("%t", f.ignoreStaged))
	set("ignore-unstaged", "DIFFCOVER_IGNORE_UNSTAGED", fmt.Sprintf("%t", f.ignoreUnstaged))
	set("include", "DIFFCOVER_INCLUDE", strings.Join(f.include, ","))
	set("exclude", "DIFFCOVER_EXCLUDE", strings.Join(f.exclude, ","))
	set("fail-under", "DIFFCOVER_FAIL_UNDER", fmt.Sprintf("%g", f.failUnder))
	set("log-level", "DIFFCOVER_LOG_LEVEL", f.logLevel)
	set("port", "DIFFCOVER_PORT", fmt.Sprintf("%d", f.port))
}

func run(cmd *cobra.Command, f *cliFlags) error {
	applyFlags(cmd, f)

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateReport(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := newDiffSource(cfg, f.scope)
	if err != nil {
		return err
	}

	filter, err := coverage.NewPathFilter(cfg.Include, cfg.Exclude)
	if err != nil {
		return err
	}

	opts := []runner.Option{
		runner.WithDiffSource(source),
		runner.WithLogger(logger),
		runner.WithOutput(cmd.OutOrStdout()),
		runner.WithPathFilter(filter),
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create report storage: %w", err)
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, runner.WithStore(store))
	}

	publisher, err := queue.New(ctx, cfg.Queue)
	if err != nil {
		return fmt.Errorf("failed to create report queue: %w", err)
	}
	if publisher != nil {
		defer publisher.Close()
		opts = append(opts, runner.WithPublisher(publisher))
	}

	r := runner.NewRunner(runner.Config{
		CoverageDir:   cfg.CoverageDir,
		Format:        cfg.Format,
		CompareBranch: cfg.CompareBranch,
		FailUnder:     cfg.FailUnder,
		Org:           cfg.Report.Org,
		Repo:          cfg.Report.Repo,
		Branch:        cfg.Report.Branch,
	}, opts...)

	_, err = r.Run(ctx)
	return err
}

func serve(cmd *cobra.Command, f *cliFlags) error {
	applyFlags(cmd, f)

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create report storage: %w", err)
	}
	if store == nil {
		return fmt.Errorf("report storage is not configured (set DIFFCOVER_STORAGE_TYPE)")
	}
	defer store.Close()

	srv, err := server.New(server.Config{Port: cfg.Port, Logger: logger, Store: store})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLogger builds a text slog logger writing to w.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// newDiffSource picks the diff source for cfg. An empty scope combines
// committed, staged and unstaged changes.
func newDiffSource(cfg *config.Config, scope string) (diff.DiffSource, error) {
	tool, err := diff.Open(cfg.DiffFile, command.NewExecExecutor(cfg.WorkDir), diff.WithGitPath(cfg.GitPath))
	if err != nil {
		return nil, err
	}

	if scope == "" {
		return diff.NewCombinedSource(tool, cfg.CompareBranch, cfg.IgnoreStaged, cfg.IgnoreUnstaged), nil
	}

	s, err := diff.ParseScope(scope)
	if err != nil {
		return nil, err
	}
	return diff.NewScopedSource(tool, s, cfg.CompareBranch), nil
}
