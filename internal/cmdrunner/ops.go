package cmdrunner

import (
	"context"
	"fmt"
	"strings"
)

// Policy selects what a failed command means to the caller.
type Policy int

const (
	// Tolerate logs the failure and lets the caller carry on.
	Tolerate Policy = iota
	// Fatal hands the failure back to the caller as an error.
	Fatal
)

// Outcome classifies a Result.
type Outcome int

const (
	Success Outcome = iota
	RecoverableFailure
	FatalFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RecoverableFailure:
		return "recoverable-failure"
	case FatalFailure:
		return "fatal-failure"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

const defaultErrorMessage = "Command exited with ERRORs"

// Result is the outcome of Exec.
type Result struct {
	Outcome Outcome
	Message string
	Output  []byte
	Err     error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Outcome == Success
}

// AsError returns a non-nil error only for fatal failures.
func (r Result) AsError() error {
	if r.Outcome != FatalFailure {
		return nil
	}
	return fmt.Errorf("%s: %w", r.Message, r.Err)
}

// Exec runs name with args under the given policy. errMsg is what gets logged
// (or wrapped, for Fatal) when the command fails; empty means the default message.
func (r *CommandsRunner) Exec(ctx context.Context, policy Policy, errMsg string, name string, args ...string) Result {
	return r.ExecCommand(ctx, policy, errMsg, Command{Name: name, Args: args})
}

// ExecCommand is Exec for a prepared Command.
func (r *CommandsRunner) ExecCommand(ctx context.Context, policy Policy, errMsg string, c Command) Result {
	if errMsg == "" {
		errMsg = defaultErrorMessage
	}
	if c.Name == "" {
		r.logger.Warn("No command specified")
		return Result{Outcome: RecoverableFailure, Message: "no command specified", Err: fmt.Errorf("empty command")}
	}

	stdout, stderr, err := r.exec.Execute(ctx, c)
	if err == nil {
		r.logger.Debugf("command succeeded: %s", c)
		return Result{Outcome: Success, Output: stdout}
	}

	if ctx.Err() != nil {
		err = ctx.Err()
	}
	err = fmt.Errorf("command %q: %w: %s", c.String(), err, strings.TrimSpace(string(stderr)))

	if policy == Fatal {
		r.logger.Errorf("command failed: %s\n%s", c, string(stderr))
		return Result{Outcome: FatalFailure, Message: errMsg, Output: stdout, Err: err}
	}

	r.logger.WithError(err).Warn(errMsg)
	return Result{Outcome: RecoverableFailure, Message: errMsg, Output: stdout, Err: err}
}

// Output runs a command whose stdout the caller parses. Failures are returned.
func (r *CommandsRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	res := r.Exec(ctx, Fatal, fmt.Sprintf("failed to run %s", name), name, args...)
	if err := res.AsError(); err != nil {
		return nil, err
	}
	return res.Output, nil
}

func (r *CommandsRunner) RunAndTrimmedOutput(ctx context.Context, name string, args ...string) (string, error) {
	out, err := r.Output(ctx, name, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
