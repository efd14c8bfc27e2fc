package ports

import (
	"context"
	"time"
)

// CallRequest is a fully resolved action invocation: the engine has already
// bound input variables into Body, so callers only speak transport.
type CallRequest struct {
	Name    string
	URL     string
	Method  string
	Headers map[string]string
	Body    map[string]any
	Timeout time.Duration
}

// ActionCaller executes node actions against external endpoints. The
// returned map is the decoded response payload; the engine binds output
// variables from it. Failures must be reported as *domain.ActionError so
// the engine can classify them.
type ActionCaller interface {
	Invoke(ctx context.Context, req CallRequest) (map[string]any, error)
}

// ActionCallerFunc adapts a function to the ActionCaller interface.
type ActionCallerFunc func(ctx context.Context, req CallRequest) (map[string]any, error)

// Invoke implements ActionCaller.
func (f ActionCallerFunc) Invoke(ctx context.Context, req CallRequest) (map[string]any, error) {
	return f(ctx, req)
}
