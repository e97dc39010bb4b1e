package cmdexec

import (
	"context"
	"strings"
	"sync"
)

// MockExecutor is a mock implementation of Executor for testing. It
// records all commands that would be executed without running them.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records every command line passed to Run.
	Commands []string

	// Stdins records the stdin content of each Run call.
	Stdins []string

	// LookPathFunc allows custom behavior for LookPath in tests.
	LookPathFunc func(file string) (string, error)

	// RunFunc allows custom behavior for Run in tests.
	RunFunc func(ctx context.Context, stdin, name string, arg ...string) (Result, error)

	// Results is consumed one entry per Run call when RunFunc is nil.
	// When exhausted, Run returns a zero Result (exit 0, empty output).
	Results []Result
}

// LookPath implements the Executor interface for testing.
func (m *MockExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	// By default, assume commands exist
	return "/path/to/" + file, nil
}

// Run implements the Executor interface, recording the command that
// would have been executed.
func (m *MockExecutor) Run(ctx context.Context, stdin, name string, arg ...string) (Result, error) {
	m.mu.Lock()
	cmdStr := name
	if len(arg) > 0 {
		cmdStr = name + " " + strings.Join(arg, " ")
	}
	m.Commands = append(m.Commands, cmdStr)
	m.Stdins = append(m.Stdins, stdin)

	var scripted *Result
	if m.RunFunc == nil && len(m.Results) > 0 {
		r := m.Results[0]
		m.Results = m.Results[1:]
		scripted = &r
	}
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, stdin, name, arg...)
	}
	if scripted != nil {
		return *scripted, nil
	}
	return Result{}, nil
}
