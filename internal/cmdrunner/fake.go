package cmdrunner

import (
	"context"
	"strings"
	"sync"
)

// FakeResponse is what FakeExecutor returns for a matching command line.
type FakeResponse struct {
	Stdout string
	Stderr string
	Err    error
}

// FakeExecutor records commands and replies from a table keyed by command
// line prefix. Unknown commands succeed with empty output.
type FakeExecutor struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	Calls     []Command
}

func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{responses: map[string]FakeResponse{}}
}

// On registers a response for every command line starting with prefix.
func (f *FakeExecutor) On(prefix string, resp FakeResponse) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
	return f
}

func (f *FakeExecutor) Execute(_ context.Context, c Command) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, c)

	line := c.String()
	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil, nil, nil
	}
	r := f.responses[best]
	return []byte(r.Stdout), []byte(r.Stderr), r.Err
}

// CommandLines returns the recorded commands as strings.
func (f *FakeExecutor) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.String())
	}
	return lines
}
