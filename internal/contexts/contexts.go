package contexts

import (
	"context"
	"errors"
)

// ErrIncomplete means a provider lacks the data its templates need yet, for
// example before the director relation has been joined.
var ErrIncomplete = errors.New("context incomplete")

// Context is the key/value data a template is executed with.
type Context map[string]any

// Provider supplies template data for one or more rendered files.
type Provider interface {
	Name() string
	Context(ctx context.Context) (Context, error)
}

// Merge combines provider outputs in order; later keys win.
func Merge(parts ...Context) Context {
	out := Context{}
	for _, p := range parts {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}
