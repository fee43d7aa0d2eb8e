package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrEmptyCommand is returned when Execute is called without a program name.
var ErrEmptyCommand = errors.New("command is empty")

// Executor runs an external program and returns its standard output.
// args[0] is the program, the rest are its arguments.
type Executor interface {
	Execute(ctx context.Context, args []string) (string, error)
}

// Error reports a command that could not produce clean output: it failed
// to start, exited with a non-zero status, or wrote to standard error.
type Error struct {
	// Args is the full argument vector, program included.
	Args []string
	// Stderr is the trimmed standard error output.
	Stderr string
	// ExitCode is the process exit code, or -1 if the process never ran.
	ExitCode int
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	name := strings.Join(e.Args, " ")
	switch {
	case e.Stderr != "":
		return fmt.Sprintf("%s: %s", name, e.Stderr)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", name, e.Err)
	default:
		return fmt.Sprintf("%s: exit status %d", name, e.ExitCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExecExecutor implements Executor using os/exec.
type ExecExecutor struct {
	// Dir is the directory to run commands in.
	// If empty, uses the current working directory.
	Dir string
}

// NewExecExecutor creates a new ExecExecutor running commands in dir.
func NewExecExecutor(dir string) *ExecExecutor {
	return &ExecExecutor{Dir: dir}
}

// Execute runs args and returns its standard output. Any output on standard
// error is treated as a failure, even when the exit status is zero.
func (e *ExecExecutor) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if e.Dir != "" {
		cmd.Dir = e.Dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	errText := strings.TrimSpace(stderr.String())

	if runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &Error{Args: args, Stderr: errText, ExitCode: exitCode, Err: runErr}
	}

	if errText != "" {
		return "", &Error{Args: args, Stderr: errText, ExitCode: 0}
	}

	return stdout.String(), nil
}
