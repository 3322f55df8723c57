package cmdrunner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/plumgrid/pg-gateway/pkg/logger"
)

// Command is a single process invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the current process environment.
	Env []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Executor runs a command and returns its stdout and stderr separately.
type Executor interface {
	Execute(ctx context.Context, c Command) (stdout, stderr []byte, err error)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

func (OSExecutor) Execute(ctx context.Context, c Command) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

type CommandsRunner struct {
	logger *logger.Logger
	exec   Executor
}

func NewCommandsRunner() *CommandsRunner {
	return &CommandsRunner{logger: logger.NewLogger("command_runner"), exec: OSExecutor{}}
}

// NewCommandsRunnerWith builds a runner over a custom executor and logger.
func NewCommandsRunnerWith(exec Executor, log *logger.Logger) *CommandsRunner {
	return &CommandsRunner{logger: log, exec: exec}
}
