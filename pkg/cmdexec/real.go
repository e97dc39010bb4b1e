package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// RealExecutor implements Executor using os/exec. This is the production
// implementation.
type RealExecutor struct{}

// LookPath searches for an executable named file in the directories
// named by the PATH environment variable.
func (e *RealExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes the command and waits for it to complete.
func (e *RealExecutor) Run(ctx context.Context, stdin, name string, arg ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, arg...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
