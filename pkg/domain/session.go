package domain

import "time"

// SessionStatus tracks where a session is in its lifecycle.
type SessionStatus string

const (
	// StatusAwaitingEntry marks a freshly created session that has not yet
	// entered its flow's start node.
	StatusAwaitingEntry SessionStatus = "awaiting_entry"
	// StatusAwaitingInput marks a session paused at a node that waits for
	// the user's next turn.
	StatusAwaitingInput SessionStatus = "awaiting_input"
	// StatusCompleted marks a session that reached a terminal node.
	StatusCompleted SessionStatus = "completed"
)

// ChatRole identifies the author of a history message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one exchange recorded in the session history.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	NodeID    string    `json:"node_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnResult is what the engine produced for a turn: the messages to show
// the user and where the session ended up. It is cached on the session so a
// replayed turn id returns the identical result.
type TurnResult struct {
	SessionID string   `json:"session_id"`
	TurnID    string   `json:"turn_id,omitempty"`
	Messages  []string `json:"messages"`
	NodeID    string   `json:"node_id"`
	Completed bool     `json:"completed"`
}

// Session is the mutable per-conversation state. The engine only ever
// persists it through the session store; definitions stay untouched.
type Session struct {
	ID            string         `json:"id"`
	FlowID        string         `json:"flow_id"`
	CurrentNodeID string         `json:"current_node_id"`
	Status        SessionStatus  `json:"status"`
	Context       map[string]any `json:"context"`
	History       []ChatMessage  `json:"history,omitempty"`

	// Attempts counts consecutive failed validation attempts per node id,
	// reset when the input finally passes.
	Attempts map[string]int `json:"attempts,omitempty"`

	// LastTurnID and LastResult implement exactly-once turn processing: a
	// turn carrying an already-seen id replays LastResult without
	// re-executing anything.
	LastTurnID string      `json:"last_turn_id,omitempty"`
	LastResult *TurnResult `json:"last_result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session positioned before the flow's start node.
func NewSession(id, flowID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		FlowID:    flowID,
		Status:    StatusAwaitingEntry,
		Context:   map[string]any{},
		Attempts:  map[string]int{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Completed reports whether the session has reached a terminal node.
func (s *Session) Completed() bool {
	return s.Status == StatusCompleted
}

// RecordMessage appends one entry to the chat history.
func (s *Session) RecordMessage(role ChatRole, content, nodeID string, at time.Time) {
	s.History = append(s.History, ChatMessage{
		Role:      role,
		Content:   content,
		NodeID:    nodeID,
		Timestamp: at,
	})
}

// Clone returns a deep copy so stores can hand out sessions without callers
// aliasing the stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Context = make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		cp.Context[k] = v
	}
	cp.Attempts = make(map[string]int, len(s.Attempts))
	for k, v := range s.Attempts {
		cp.Attempts[k] = v
	}
	if s.History != nil {
		cp.History = append([]ChatMessage(nil), s.History...)
	}
	if s.LastResult != nil {
		lr := *s.LastResult
		lr.Messages = append([]string(nil), s.LastResult.Messages...)
		cp.LastResult = &lr
	}
	return &cp
}
