package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

// recordingCaller captures requests and replies from a canned script.
type recordingCaller struct {
	requests  []ports.CallRequest
	responses map[string]map[string]any
	errs      map[string]error
}

func (c *recordingCaller) Invoke(ctx context.Context, req ports.CallRequest) (map[string]any, error) {
	c.requests = append(c.requests, req)
	if err, ok := c.errs[req.Name]; ok {
		return nil, err
	}
	return c.responses[req.Name], nil
}

func actionFlow(actions []domain.Action) *domain.FlowDefinition {
	return &domain.FlowDefinition{
		ID:          "actions",
		StartNodeID: "ask-id",
		Nodes: map[string]domain.Node{
			"ask-id": {
				ID:                "ask-id",
				Type:              domain.NodeCollectInput,
				Prompt:            "Customer ID?",
				OutputVariable:    "customer_id",
				Actions:           actions,
				DefaultTransition: "done",
			},
			"done":    {ID: "done", Type: domain.NodeMessage, Prompt: "All set, {{customer_name}}."},
			"sorry":   {ID: "sorry", Type: domain.NodeMessage, Prompt: "We could not look you up."},
			"express": {ID: "express", Type: domain.NodeMessage, Prompt: "Fast lane!"},
		},
	}
}

func TestActionBindsInputAndOutput(t *testing.T) {
	caller := &recordingCaller{
		responses: map[string]map[string]any{
			"lookup": {
				"data": map[string]any{"name": "Ada Lovelace"},
			},
		},
	}
	def := actionFlow([]domain.Action{{
		Name:    "lookup",
		URL:     "https://api.example.com/customers/{{customer_id}}",
		Method:  "POST",
		Headers: map[string]string{"X-Customer": "{{customer_id}}"},
		Input:   map[string]string{"id": "customer_id"},
		Output:  map[string]string{"customer_name": "name"},
	}})
	e, store := newTestEngine(t, def, func(cfg *Config) { cfg.Caller = caller })
	ctx := context.Background()

	_, err := e.StartSession(ctx, "s1")
	require.NoError(t, err)

	res, err := e.ProcessTurn(ctx, "s1", "", "c-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"All set, Ada Lovelace."}, res.Messages)

	require.Len(t, caller.requests, 1)
	req := caller.requests[0]
	assert.Equal(t, "https://api.example.com/customers/c-42", req.URL)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "c-42", req.Headers["X-Customer"])
	assert.Equal(t, map[string]any{"id": "c-42"}, req.Body)
	assert.Equal(t, defaultActionTimeout, req.Timeout)

	// The output variable was bound from the nested response field.
	sess, _ := store.Get(ctx, "s1")
	assert.Equal(t, "Ada Lovelace", sess.Context["customer_name"])
}

func TestActionUsesConfiguredTimeout(t *testing.T) {
	caller := &recordingCaller{
		responses: map[string]map[string]any{
			"lookup": {"name": "Ada Lovelace"},
		},
	}
	def := actionFlow([]domain.Action{{
		Name:   "lookup",
		URL:    "https://api.example.com/customers",
		Method: "GET",
		Output: map[string]string{"customer_name": "name"},
	}})
	e, _ := newTestEngine(t, def, func(cfg *Config) {
		cfg.Caller = caller
		cfg.ActionTimeout = 3 * time.Second
	})
	ctx := context.Background()

	_, err := e.StartSession(ctx, "s1")
	require.NoError(t, err)
	_, err = e.ProcessTurn(ctx, "s1", "", "c-42")
	require.NoError(t, err)

	require.Len(t, caller.requests, 1)
	assert.Equal(t, 3*time.Second, caller.requests[0].Timeout)
}

func TestActionOnSuccessSkipsRemaining(t *testing.T) {
	caller := &recordingCaller{responses: map[string]map[string]any{}}
	def := actionFlow([]domain.Action{
		{Name: "first", URL: "https://one.example.com", OnSuccess: "express"},
		{Name: "second", URL: "https://two.example.com"},
	})
	e, _ := newTestEngine(t, def, func(cfg *Config) { cfg.Caller = caller })
	ctx := context.Background()

	_, err := e.StartSession(ctx, "s1")
	require.NoError(t, err)

	res, err := e.ProcessTurn(ctx, "s1", "", "c-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fast lane!"}, res.Messages)

	require.Len(t, caller.requests, 1, "second action must be skipped")
	assert.Equal(t, "first", caller.requests[0].Name)
}

func TestActionOnFailureRoutes(t *testing.T) {
	caller := &recordingCaller{
		errs: map[string]error{
			"lookup": &domain.ActionError{Action: "lookup", Kind: domain.ActionErrStatus, Err: errors.New("502")},
		},
	}
	def := actionFlow([]domain.Action{
		{Name: "lookup", URL: "https://api.example.com", OnFailure: "sorry"},
		{Name: "after", URL: "https://never.example.com"},
	})
	e, _ := newTestEngine(t, def, func(cfg *Config) { cfg.Caller = caller })
	ctx := context.Background()

	_, err := e.StartSession(ctx, "s1")
	require.NoError(t, err)

	res, err := e.ProcessTurn(ctx, "s1", "", "c-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"We could not look you up."}, res.Messages)
	require.Len(t, caller.requests, 1, "actions after the failure must not run")
}

func TestActionMissingOutputFieldFails(t *testing.T) {
	caller := &recordingCaller{
		responses: map[string]map[string]any{
			"lookup": {"status": "ok"},
		},
	}
	def := actionFlow([]domain.Action{{
		Name:      "lookup",
		URL:       "https://api.example.com",
		Output:    map[string]string{"customer_name": "name"},
		OnFailure: "sorry",
	}})
	e, store := newTestEngine(t, def, func(cfg *Config) { cfg.Caller = caller })
	ctx := context.Background()

	_, err := e.StartSession(ctx, "s1")
	require.NoError(t, err)

	res, err := e.ProcessTurn(ctx, "s1", "", "c-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"We could not look you up."}, res.Messages)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, sess.Context, "customer_name")
}

func TestActionMissingOutputFieldWithoutHandlerSurfaces(t *testing.T) {
	caller := &recordingCaller{
		responses: map[string]map[string]any{
			"lookup": {"status": "ok"},
		},
	}
	def := actionFlow([]domain.Action{{
		Name:   "lookup",
		URL:    "https://api.example.com",
		Output: map[string]string{"customer_name": "name"},
	}})
	e, _ := newTestEngine(t, def, func(cfg *Config) { cfg.Caller = caller })
	ctx := context.Background()

	_, err := e.StartSession(ctx, "s1")
	require.NoError(t, err)

	_, err = e.ProcessTurn(ctx, "s1", "", "c-42")
	var aerr *domain.ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, domain.ActionErrBinding, aerr.Kind)
	assert.ErrorContains(t, aerr, `missing output field "name"`)
}

func TestActionFailureWithoutHandlerLeavesSessionUnchanged(t *testing.T) {
	caller := &recordingCaller{
		errs: map[string]error{
			"lookup": &domain.ActionError{Action: "lookup", Kind: domain.ActionErrTimeout, Err: errors.New("deadline")},
		},
	}
	def := actionFlow([]domain.Action{{Name: "lookup", URL: "https://api.example.com"}})
	e, store := newTestEngine(t, def, func(cfg *Config) { cfg.Caller = caller })
	ctx := context.Background()

	_, err := e.StartSession(ctx, "s1")
	require.NoError(t, err)

	_, err = e.ProcessTurn(ctx, "s1", "", "c-42")
	var aerr *domain.ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, domain.ActionErrTimeout, aerr.Kind)

	// Nothing was persisted: the input is not stored, the node unchanged.
	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ask-id", sess.CurrentNodeID)
	assert.NotContains(t, sess.Context, "customer_id")
}

func TestActionMissingInputVariable(t *testing.T) {
	caller := &recordingCaller{}
	def := actionFlow([]domain.Action{{
		Name:  "lookup",
		URL:   "https://api.example.com",
		Input: map[string]string{"email": "customer_email"},
	}})
	e, _ := newTestEngine(t, def, func(cfg *Config) { cfg.Caller = caller })
	ctx := context.Background()

	_, err := e.StartSession(ctx, "s1")
	require.NoError(t, err)

	_, err = e.ProcessTurn(ctx, "s1", "", "c-42")
	var aerr *domain.ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, domain.ActionErrBinding, aerr.Kind)
	assert.Empty(t, caller.requests, "the endpoint must not be called")
}

func TestFindField(t *testing.T) {
	payload := map[string]any{
		"meta": map[string]any{"page": 1},
		"results": []any{
			map[string]any{"profile": map[string]any{"plan": "gold"}},
		},
	}

	v, ok := findField(payload, "plan")
	require.True(t, ok)
	assert.Equal(t, "gold", v)

	_, ok = findField(payload, "absent")
	assert.False(t, ok)
}
