package mcp

import (
	"context"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
)

type stubRunner struct {
	def     *domain.FlowDefinition
	started string
	turns   []string
	ended   string
}

func (r *stubRunner) Definition() *domain.FlowDefinition { return r.def }

func (r *stubRunner) StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	if sessionID == "" {
		sessionID = "generated-1"
	}
	r.started = sessionID
	return &domain.TurnResult{SessionID: sessionID, Messages: []string{"Welcome!"}, NodeID: "welcome"}, nil
}

func (r *stubRunner) ProcessTurn(ctx context.Context, sessionID, turnID, input string) (*domain.TurnResult, error) {
	r.turns = append(r.turns, input)
	return &domain.TurnResult{SessionID: sessionID, TurnID: turnID, Messages: []string{"Bye."}, NodeID: "done", Completed: true}, nil
}

func (r *stubRunner) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return &domain.Session{ID: sessionID, FlowID: r.def.ID}, nil
}

func (r *stubRunner) EndSession(ctx context.Context, sessionID string) error {
	r.ended = sessionID
	return nil
}

func newTestServer(t *testing.T) (*Server, *stubRunner) {
	t.Helper()
	runner := &stubRunner{def: &domain.FlowDefinition{ID: "signup", StartNodeID: "welcome"}}
	return NewServer("0.1.0\n", map[string]FlowRunner{"signup": runner}), runner
}

func TestHandleStartSession(t *testing.T) {
	srv, runner := newTestServer(t)

	res, err := srv.handleStartSession(context.Background(), mcplib.CallToolRequest{},
		map[string]any{"flow_id": "signup"})
	require.NoError(t, err)
	assert.Equal(t, "generated-1", res.SessionID)
	assert.Equal(t, []string{"Welcome!"}, res.Messages)
	assert.Equal(t, "generated-1", runner.started)
}

func TestHandleProcessTurn(t *testing.T) {
	srv, runner := newTestServer(t)

	res, err := srv.handleProcessTurn(context.Background(), mcplib.CallToolRequest{},
		map[string]any{"flow_id": "signup", "session_id": "s1", "turn_id": "t1", "input": "hi"})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "done", res.NodeID)
	assert.Equal(t, []string{"hi"}, runner.turns)
}

func TestHandleUnknownFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.handleStartSession(context.Background(), mcplib.CallToolRequest{},
		map[string]any{"flow_id": "nope"})
	assert.ErrorContains(t, err, "flow not found")
}

func TestRegisterAddsFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	extra := &stubRunner{def: &domain.FlowDefinition{ID: "support"}}
	srv.Register("support", extra)

	assert.Equal(t, []string{"signup", "support"}, srv.flowIDs())
}
