package provider

import (
	"context"
	"strings"

	"github.com/conveyordev/conveyor/pkg/cmdexec"
	"github.com/sirupsen/logrus"
)

// CommandClient implements Client by executing an llm-style command-line
// tool, piping the prompt to stdin and reading the completion from
// stdout. Everything provider-specific stays behind that command's own
// configuration.
type CommandClient struct {
	command  string
	executor cmdexec.Executor
}

// NewCommandClient creates a client for the given command. An empty
// command defaults to "llm"; a nil executor selects the real one.
func NewCommandClient(command string, executor cmdexec.Executor) *CommandClient {
	if command == "" {
		command = "llm"
	}
	if executor == nil {
		executor = &cmdexec.RealExecutor{}
	}
	if _, err := executor.LookPath(command); err != nil {
		// The missing binary surfaces as StatusFailed at call time; a
		// warning here makes misconfiguration visible up front.
		logrus.WithField("command", command).Warn("provider command not found in PATH")
	}
	return &CommandClient{command: command, executor: executor}
}

// Name identifies the provider command.
func (c *CommandClient) Name() string {
	return c.command
}

// Complete runs the provider command and classifies its result.
func (c *CommandClient) Complete(ctx context.Context, model, prompt string) Result {
	var args []string
	if model != "" {
		args = append(args, "-m", model)
	}

	res, err := c.executor.Run(ctx, prompt, c.command, args...)
	if err != nil {
		return Result{Status: StatusFailed, Message: err.Error()}
	}
	if res.ExitCode == 0 {
		return Result{Status: StatusOK, Output: res.Stdout}
	}
	return classifyFailure(res.Stderr)
}

// Sentinel substrings used to classify provider CLI failures. Quota
// patterns are checked first: quota-exhaustion messages often carry a
// 429 status as well.
var (
	quotaPatterns = []string{
		"quota",
		"insufficient credit",
		"billing",
		"budget exhausted",
		"payment required",
		"402",
	}
	rateLimitPatterns = []string{
		"rate limit",
		"rate_limit",
		"too many requests",
		"429",
		"overloaded",
	}
)

func classifyFailure(stderr string) Result {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) {
			return Result{Status: StatusQuotaExhausted, Message: msg}
		}
	}
	for _, p := range rateLimitPatterns {
		if strings.Contains(lower, p) {
			return Result{Status: StatusRateLimited, Message: msg}
		}
	}
	return Result{Status: StatusFailed, Message: msg}
}
