// Package cmdexec provides a mockable interface for running external
// commands. Provider clients build on it so tests never spawn real
// processes.
package cmdexec

import "context"

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor defines an interface for running external commands.
type Executor interface {
	// LookPath searches for an executable named file in the directories
	// named by the PATH environment variable.
	LookPath(file string) (string, error)

	// Run executes the command, feeding stdin to the process and capturing
	// stdout and stderr. A non-zero exit status is reported through
	// Result.ExitCode with a nil error; the error return is reserved for
	// failures to start the process or a cancelled context.
	Run(ctx context.Context, stdin, name string, arg ...string) (Result, error)
}
