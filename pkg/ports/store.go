package ports

import (
	"context"

	"github.com/parleyflow/parley/pkg/domain"
)

// SessionStore persists conversation sessions. Implementations must return
// deep copies (or fresh decodes) so callers never alias stored state.
type SessionStore interface {
	// Save upserts the session under its ID.
	Save(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

// FlowStore persists flow definitions for deployments that serve more than
// one flow. Definitions are stored as authored; integrity validation happens
// in the loader, not here.
type FlowStore interface {
	// Put upserts a flow definition under its ID.
	Put(ctx context.Context, def *domain.FlowDefinition) error

	// Get retrieves a flow definition by ID.
	// Returns domain.ErrFlowNotFound if the flow does not exist.
	Get(ctx context.Context, flowID string) (*domain.FlowDefinition, error)

	// Delete removes the flow definition.
	Delete(ctx context.Context, flowID string) error

	// List returns the IDs of all stored flows.
	List(ctx context.Context) ([]string, error)
}
