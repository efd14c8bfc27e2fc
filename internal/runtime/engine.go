// Package runtime implements the flow execution engine: turn processing,
// node handlers, transition evaluation, input validation and action
// execution over an immutable flow definition.
package runtime

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/parleyflow/parley/internal/logging"
	"github.com/parleyflow/parley/internal/metrics"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
	"github.com/parleyflow/parley/pkg/session"
)

// defaultActionTimeout bounds actions that do not set timeout_seconds.
const defaultActionTimeout = 10 * time.Second

// Config carries the engine's collaborators. Definition and Store are
// required; everything else has a working default.
type Config struct {
	Definition *domain.FlowDefinition
	Store      ports.SessionStore
	Manager    *session.Manager
	Caller     ports.ActionCaller
	Completers map[string]ports.Completer

	// DefaultProvider names the completer used by ai_chat nodes that do
	// not set ai_config.provider.
	DefaultProvider string

	// ActionTimeout bounds actions that do not set timeout_seconds. Zero
	// means defaultActionTimeout.
	ActionTimeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Recorder

	// Clock and NewID exist so tests can pin time and session IDs.
	Clock func() time.Time
	NewID func() string
}

// Engine executes one flow definition across many sessions. It is safe for
// concurrent use; the session manager serializes turns per session.
type Engine struct {
	def           *domain.FlowDefinition
	store         ports.SessionStore
	manager       *session.Manager
	caller        ports.ActionCaller
	completers    map[string]ports.Completer
	provider      string
	actionTimeout time.Duration
	logger        *slog.Logger
	metrics       *metrics.Recorder
	clock         func() time.Time
	newID         func() string
}

// New builds an engine from the config, applying defaults.
func New(cfg Config) (*Engine, error) {
	if cfg.Definition == nil {
		return nil, fmt.Errorf("engine requires a flow definition")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine requires a session store")
	}
	e := &Engine{
		def:           cfg.Definition,
		store:         cfg.Store,
		manager:       cfg.Manager,
		caller:        cfg.Caller,
		completers:    cfg.Completers,
		provider:      cfg.DefaultProvider,
		actionTimeout: cfg.ActionTimeout,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		clock:         cfg.Clock,
		newID:         cfg.NewID,
	}
	if e.actionTimeout <= 0 {
		e.actionTimeout = defaultActionTimeout
	}
	if e.manager == nil {
		e.manager = session.NewManager(cfg.Store)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.clock == nil {
		e.clock = func() time.Time { return time.Now().UTC() }
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e, nil
}

// Definition returns the flow this engine executes.
func (e *Engine) Definition() *domain.FlowDefinition {
	return e.def
}

// StartSession creates a session, enters the flow's start node and returns
// the entry messages. An empty sessionID gets a generated one.
func (e *Engine) StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	if sessionID == "" {
		sessionID = e.newID()
	}

	var result *domain.TurnResult
	err := e.manager.Do(ctx, sessionID, func(ctx context.Context) error {
		if _, err := e.store.Get(ctx, sessionID); err == nil {
			return fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionExists)
		} else if err != domain.ErrSessionNotFound {
			return err
		}

		sess := domain.NewSession(sessionID, e.def.ID, e.clock())
		var err error
		result, err = e.enterFlow(ctx, sess)
		if err != nil {
			return err
		}
		return e.store.Save(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.SessionsStarted.WithLabelValues(e.def.ID).Inc()
	}
	return result, nil
}

// ProcessTurn runs one user turn against the session, blocking if another
// turn for the same session is in flight. A non-empty turnID makes the
// call idempotent: reprocessing a seen turnID replays the cached result.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, turnID, input string) (*domain.TurnResult, error) {
	return e.processTurn(ctx, sessionID, turnID, input, e.manager.Do)
}

// TryProcessTurn is ProcessTurn except that it fails fast with
// domain.ErrConcurrentTurn instead of queueing behind an in-flight turn.
func (e *Engine) TryProcessTurn(ctx context.Context, sessionID, turnID, input string) (*domain.TurnResult, error) {
	return e.processTurn(ctx, sessionID, turnID, input, e.manager.TryDo)
}

type lockFn func(context.Context, string, func(context.Context) error) error

func (e *Engine) processTurn(ctx context.Context, sessionID, turnID, input string, lock lockFn) (*domain.TurnResult, error) {
	var result *domain.TurnResult
	err := lock(ctx, sessionID, func(ctx context.Context) error {
		sess, err := e.store.Get(ctx, sessionID)
		if err != nil {
			return err
		}

		if turnID != "" && turnID == sess.LastTurnID && sess.LastResult != nil {
			replay := *sess.LastResult
			result = &replay
			return nil
		}

		if sess.Completed() {
			return fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionCompleted)
		}

		started := e.clock()
		result, err = e.handleTurn(ctx, sess, input)
		if err != nil {
			return err
		}

		result.TurnID = turnID
		sess.LastTurnID = turnID
		sess.LastResult = result
		sess.UpdatedAt = e.clock()
		if err := e.store.Save(ctx, sess); err != nil {
			return err
		}

		if e.metrics != nil {
			e.metrics.TurnDuration.WithLabelValues(e.def.ID).Observe(e.clock().Sub(started).Seconds())
			if result.Completed {
				e.metrics.SessionsCompleted.WithLabelValues(e.def.ID).Inc()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Session returns a copy of the stored session.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.store.Get(ctx, sessionID)
}

// EndSession deletes the session.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	return e.manager.Do(ctx, sessionID, func(ctx context.Context) error {
		return e.store.Delete(ctx, sessionID)
	})
}

// handleTurn dispatches the input to the current node's handler. The
// session passed in is a private copy; it is only persisted by the caller
// when no error comes back, so failed turns leave the stored session
// untouched.
func (e *Engine) handleTurn(ctx context.Context, sess *domain.Session, input string) (*domain.TurnResult, error) {
	// A turn arriving before the session entered the flow performs the
	// entry; the input is not consumed.
	if sess.Status == domain.StatusAwaitingEntry {
		return e.enterFlow(ctx, sess)
	}

	node, ok := e.def.Node(sess.CurrentNodeID)
	if !ok {
		return nil, fmt.Errorf("session %q references unknown node %q", sess.ID, sess.CurrentNodeID)
	}

	if e.metrics != nil {
		e.metrics.TurnsTotal.WithLabelValues(e.def.ID, string(node.Type)).Inc()
	}

	sess.RecordMessage(domain.RoleUser, input, node.ID, e.clock())

	col := &collector{}
	var err error
	switch node.Type {
	case domain.NodeCollectInput:
		err = e.handleCollectInput(ctx, sess, node, input, col)
	case domain.NodeMenu:
		err = e.handleMenu(ctx, sess, node, input, col)
	case domain.NodeAIChat:
		err = e.handleAIChat(ctx, sess, node, input, col)
	case domain.NodeProcessMedia:
		err = e.handleProcessMedia(ctx, sess, node, input, col)
	default:
		// Message nodes never wait for input, so a session can not be
		// parked on one.
		err = fmt.Errorf("session %q is parked on non-waiting node %q (%s)", sess.ID, node.ID, node.Type)
	}
	if err != nil {
		return nil, err
	}

	return e.finish(sess, col), nil
}

// enterFlow moves a fresh session into the start node.
func (e *Engine) enterFlow(ctx context.Context, sess *domain.Session) (*domain.TurnResult, error) {
	col := &collector{}
	if err := e.enterNode(ctx, sess, e.def.StartNodeID, col); err != nil {
		return nil, err
	}
	return e.finish(sess, col), nil
}

func (e *Engine) finish(sess *domain.Session, col *collector) *domain.TurnResult {
	return &domain.TurnResult{
		SessionID: sess.ID,
		Messages:  col.messages,
		NodeID:    sess.CurrentNodeID,
		Completed: sess.Completed(),
	}
}

// collector accumulates the outbound messages of one turn in order.
type collector struct {
	messages []string
}

func (c *collector) add(msg string) {
	if msg != "" {
		c.messages = append(c.messages, msg)
	}
}
