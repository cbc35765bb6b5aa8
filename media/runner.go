package media

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// commandResult is the captured output of one process.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// run executes one tool under timeout and converts failures into a
// *CommandError.
func run(ctx context.Context, runner commandRunner, timeout timeoutFunc, tool string, args ...string) (commandResult, error) {
	ctx, cancel := timeout(ctx)
	defer cancel()

	res, err := runner.Run(ctx, tool, args...)
	if err != nil {
		if ctx.Err() != nil {
			err = errors.Join(err, ctx.Err())
		}
		return res, &CommandError{Tool: tool, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}
	return res, nil
}

type timeoutFunc func(ctx context.Context) (context.Context, context.CancelFunc)
