// Package process implements the ActionCaller port over local commands.
// Actions whose URL uses the exec scheme ("exec://tool-name") run a command
// from an allow-list; everything else is delegated to a fallback caller
// when one is configured. Input bindings are passed to the command as
// environment variables and stdout is decoded like an HTTP response body.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"log/slog"

	"github.com/parleyflow/parley/internal/logging"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

// Scheme marks action URLs handled by this caller.
const Scheme = "exec://"

// envPrefix prefixes the environment variables carrying input bindings.
const envPrefix = "PARLEY_ARG_"

var envKeyPattern = regexp.MustCompile(`[^A-Z0-9_]+`)

// Command is one allow-listed executable. Args are fixed at registration;
// request bindings never become command-line arguments, which keeps flag
// injection off the table.
type Command struct {
	Path string
	Args []string
}

// Caller executes exec-scheme actions against registered commands.
type Caller struct {
	registry map[string]Command
	baseDir  string
	fallback ports.ActionCaller
	logger   *slog.Logger
}

// Option configures the caller.
type Option func(*Caller)

// WithCommand registers an executable under the given tool name.
func WithCommand(name, path string, args ...string) Option {
	return func(c *Caller) {
		c.registry[name] = Command{Path: path, Args: args}
	}
}

// WithBaseDir sets the working directory for executed commands.
func WithBaseDir(dir string) Option {
	return func(c *Caller) {
		c.baseDir = dir
	}
}

// WithFallback delegates non-exec URLs to another caller, typically the
// HTTP one.
func WithFallback(fallback ports.ActionCaller) Option {
	return func(c *Caller) {
		c.fallback = fallback
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Caller) {
		c.logger = logger
	}
}

// New creates a caller with an empty allow-list.
func New(opts ...Option) *Caller {
	c := &Caller{
		registry: make(map[string]Command),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke implements ports.ActionCaller.
func (c *Caller) Invoke(ctx context.Context, req ports.CallRequest) (map[string]any, error) {
	if !strings.HasPrefix(req.URL, Scheme) {
		if c.fallback != nil {
			return c.fallback.Invoke(ctx, req)
		}
		return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrBinding,
			Err: fmt.Errorf("unsupported action url %q", req.URL)}
	}

	tool := strings.TrimPrefix(req.URL, Scheme)
	command, ok := c.registry[tool]
	if !ok {
		return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrBinding,
			Err: fmt.Errorf("command %q is not registered", tool)}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command.Path, command.Args...)
	cmd.Dir = c.baseDir
	cmd.Env = append(cmd.Environ(), bindingsToEnv(req.Body)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	c.logger.Debug("action command finished",
		"action", req.Name,
		"tool", tool,
		"duration", time.Since(start),
	)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrTimeout, Err: ctxErr}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrStatus,
				Err: fmt.Errorf("command exited with code %d: %s", exitErr.ExitCode(),
					strings.TrimSpace(stderr.String()))}
		}
		return nil, &domain.ActionError{Action: req.Name, Kind: domain.ActionErrNetwork, Err: err}
	}

	return decodeOutput(req.Name, stdout.Bytes())
}

// bindingsToEnv serializes input bindings as PARLEY_ARG_* variables.
// Scalars keep their string form; anything structured goes through JSON.
func bindingsToEnv(body map[string]any) []string {
	env := make([]string, 0, len(body))
	for key, value := range body {
		var encoded string
		switch value.(type) {
		case nil:
			encoded = ""
		case string, bool, int, int64, float64:
			encoded = fmt.Sprintf("%v", value)
		default:
			if raw, err := json.Marshal(value); err == nil {
				encoded = string(raw)
			} else {
				encoded = fmt.Sprintf("%v", value)
			}
		}
		name := envKeyPattern.ReplaceAllString(strings.ToUpper(key), "_")
		env = append(env, envPrefix+name+"="+encoded)
	}
	return env
}

// decodeOutput turns stdout into the output-binding map. An empty output is
// an empty map, a JSON object is used as-is, and anything else is wrapped
// under "result".
func decodeOutput(action string, raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err == nil {
		if obj, ok := decoded.(map[string]any); ok {
			return obj, nil
		}
		return map[string]any{"result": decoded}, nil
	}
	return map[string]any{"result": string(trimmed)}, nil
}
