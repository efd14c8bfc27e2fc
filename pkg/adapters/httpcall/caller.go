// Package httpcall implements the ActionCaller port over net/http: node
// actions become JSON requests against external endpoints, with failures
// classified into the engine's action error kinds.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/parleyflow/parley/internal/logging"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Caller executes actions with a shared HTTP client.
type Caller struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures the caller.
type Option func(*Caller)

// WithHTTPClient overrides the underlying client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Caller) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Caller) {
		c.logger = logger
	}
}

// New creates a caller. The per-request timeout comes from the CallRequest,
// so the shared client carries none.
func New(opts ...Option) *Caller {
	c := &Caller{
		client: &http.Client{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke implements ports.ActionCaller.
func (c *Caller) Invoke(ctx context.Context, req ports.CallRequest) (map[string]any, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if len(req.Body) > 0 {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrBinding,
				Err: fmt.Errorf("encoding request body: %w", err)}
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrBinding,
			Err: fmt.Errorf("building request: %w", err)}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		kind := domain.ActionErrNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = domain.ActionErrTimeout
		}
		return nil, &domain.ActionError{Action: req.Name, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrNetwork,
			Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug("action call finished",
		"action", req.Name,
		"method", method,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrStatus,
			Err: fmt.Errorf("endpoint returned %s", resp.Status)}
	}

	return decodePayload(req.Name, raw)
}

// decodePayload turns the response body into the output-binding map. An
// empty body is an empty map; a non-object JSON document is wrapped under
// "result"; anything unparseable is a binding failure.
func decodePayload(action string, raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, &domain.ActionError{Action: action, Kind: domain.ActionErrBinding,
			Err: fmt.Errorf("response is not valid JSON: %w", err)}
	}

	if obj, ok := decoded.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"result": decoded}, nil
}
