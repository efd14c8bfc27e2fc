// Package parley executes declarative conversation flows: graphs of
// prompt, menu, input-collection, media and AI-chat nodes with validated
// input, declarative side effects and per-session turn serialization.
//
// The root package is the embedding surface. Load a flow, wire stores and
// providers through options, and drive it one turn at a time:
//
//	fl, err := parley.Load("onboarding.yaml",
//		parley.WithSessionStore(redisStore),
//		parley.WithActionCaller(httpcall.New()),
//		parley.WithCompleter("openai", openaiCompleter),
//	)
//	if err != nil { ... }
//
//	res, err := fl.StartSession(ctx, "")
//	res, err = fl.ProcessTurn(ctx, res.SessionID, "turn-1", "AB1234")
package parley

import (
	"context"
	"log/slog"
	"time"

	"github.com/parleyflow/parley/internal/logging"
	"github.com/parleyflow/parley/internal/metrics"
	"github.com/parleyflow/parley/internal/runtime"
	"github.com/parleyflow/parley/pkg/adapters/memory"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/flow"
	"github.com/parleyflow/parley/pkg/ports"
	"github.com/parleyflow/parley/pkg/session"
)

// Flow is a loaded, validated flow definition bound to its runtime
// collaborators. It is safe for concurrent use.
type Flow struct {
	engine *runtime.Engine

	store         ports.SessionStore
	locker        ports.DistributedLocker
	caller        ports.ActionCaller
	completers    map[string]ports.Completer
	provider      string
	actionTimeout time.Duration
	logger        *slog.Logger
	recorder      *metrics.Recorder
	clock         func() time.Time
	newID         func() string
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithSessionStore sets the session persistence backend. Defaults to an
// in-memory store.
func WithSessionStore(store ports.SessionStore) Option {
	return func(f *Flow) {
		f.store = store
	}
}

// WithLocker enables distributed turn locking for multi-replica
// deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(f *Flow) {
		f.locker = locker
	}
}

// WithActionCaller sets the executor for node actions.
func WithActionCaller(caller ports.ActionCaller) Option {
	return func(f *Flow) {
		f.caller = caller
	}
}

// WithActionTimeout sets the timeout for actions that do not declare
// timeout_seconds. Defaults to 10 seconds.
func WithActionTimeout(d time.Duration) Option {
	return func(f *Flow) {
		f.actionTimeout = d
	}
}

// WithCompleter registers a model provider for ai_chat nodes under the
// given name. The first registered completer becomes the default provider
// unless WithDefaultProvider overrides it.
func WithCompleter(name string, completer ports.Completer) Option {
	return func(f *Flow) {
		if f.completers == nil {
			f.completers = make(map[string]ports.Completer)
		}
		f.completers[name] = completer
		if f.provider == "" {
			f.provider = name
		}
	}
}

// WithDefaultProvider names the completer used when a node's ai_config
// does not set one.
func WithDefaultProvider(name string) Option {
	return func(f *Flow) {
		f.provider = name
	}
}

// WithMetrics attaches a Prometheus recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(f *Flow) {
		f.recorder = recorder
	}
}

// WithClock pins the engine's time source. Meant for tests.
func WithClock(clock func() time.Time) Option {
	return func(f *Flow) {
		f.clock = clock
	}
}

// WithIDGenerator overrides how generated session IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(f *Flow) {
		f.newID = fn
	}
}

// New binds an already validated definition to a runtime. Definitions from
// untrusted sources should come through Load or LoadBytes, which validate
// first; New validates again regardless, so a hand-built definition cannot
// bypass integrity checks.
func New(def *domain.FlowDefinition, opts ...Option) (*Flow, error) {
	if err := flow.Validate(def); err != nil {
		return nil, err
	}

	f := &Flow{}
	for _, opt := range opts {
		opt(f)
	}
	if f.store == nil {
		f.store = memory.NewSessionStore()
	}
	if f.logger == nil {
		f.logger = logging.NewNop()
	}

	managerOpts := []session.Option{session.WithLogger(f.logger)}
	if f.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(f.locker))
	}
	manager := session.NewManager(f.store, managerOpts...)

	engine, err := runtime.New(runtime.Config{
		Definition:      def,
		Store:           f.store,
		Manager:         manager,
		Caller:          f.caller,
		Completers:      f.completers,
		DefaultProvider: f.provider,
		ActionTimeout:   f.actionTimeout,
		Logger:          f.logger.With("flow", def.ID),
		Metrics:         f.recorder,
		Clock:           f.clock,
		NewID:           f.newID,
	})
	if err != nil {
		return nil, err
	}
	f.engine = engine
	return f, nil
}

// Load reads, validates and binds a flow document from disk.
func Load(path string, opts ...Option) (*Flow, error) {
	def, err := flow.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(def, opts...)
}

// LoadBytes is Load for an in-memory document (YAML or JSON).
func LoadBytes(data []byte, opts ...Option) (*Flow, error) {
	def, err := flow.Load(data)
	if err != nil {
		return nil, err
	}
	return New(def, opts...)
}

// Definition returns the bound flow definition.
func (f *Flow) Definition() *domain.FlowDefinition {
	return f.engine.Definition()
}

// StartSession creates a session and returns the flow's entry messages.
// An empty sessionID gets a generated one, echoed in the result.
func (f *Flow) StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	return f.engine.StartSession(ctx, sessionID)
}

// ProcessTurn runs one user turn, waiting for any in-flight turn on the
// same session to finish first. A non-empty turnID makes the call
// idempotent: a retry with the same turnID replays the recorded result.
func (f *Flow) ProcessTurn(ctx context.Context, sessionID, turnID, input string) (*domain.TurnResult, error) {
	return f.engine.ProcessTurn(ctx, sessionID, turnID, input)
}

// TryProcessTurn is ProcessTurn, except it fails fast with
// domain.ErrConcurrentTurn when another turn holds the session.
func (f *Flow) TryProcessTurn(ctx context.Context, sessionID, turnID, input string) (*domain.TurnResult, error) {
	return f.engine.TryProcessTurn(ctx, sessionID, turnID, input)
}

// Session returns a copy of the stored session state.
func (f *Flow) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return f.engine.Session(ctx, sessionID)
}

// EndSession deletes the session.
func (f *Flow) EndSession(ctx context.Context, sessionID string) error {
	return f.engine.EndSession(ctx, sessionID)
}
