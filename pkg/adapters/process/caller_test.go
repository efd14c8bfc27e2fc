package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

func TestInvokeDecodesJSONOutput(t *testing.T) {
	caller := New(WithCommand("lookup", "sh", "-c", `echo '{"plan": "pro", "seats": 5}'`))

	out, err := caller.Invoke(context.Background(), ports.CallRequest{
		Name: "lookup-plan",
		URL:  "exec://lookup",
	})
	require.NoError(t, err)
	assert.Equal(t, "pro", out["plan"])
	assert.Equal(t, float64(5), out["seats"])
}

func TestInvokeWrapsPlainOutput(t *testing.T) {
	caller := New(WithCommand("greet", "sh", "-c", "echo hello"))

	out, err := caller.Invoke(context.Background(), ports.CallRequest{
		Name: "greet",
		URL:  "exec://greet",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out["result"])
}

func TestInvokePassesBindingsAsEnv(t *testing.T) {
	caller := New(WithCommand("echo-name", "sh", "-c", `echo "name=$PARLEY_ARG_USER_NAME"`))

	out, err := caller.Invoke(context.Background(), ports.CallRequest{
		Name: "echo-name",
		URL:  "exec://echo-name",
		Body: map[string]any{"user-name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, "name=Ada", out["result"])
}

func TestInvokeRejectsUnregisteredTool(t *testing.T) {
	caller := New()

	_, err := caller.Invoke(context.Background(), ports.CallRequest{
		Name: "lookup",
		URL:  "exec://missing",
	})

	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, domain.ActionErrBinding, actionErr.Kind)
}

func TestInvokeClassifiesNonZeroExit(t *testing.T) {
	caller := New(WithCommand("boom", "sh", "-c", "echo nope >&2; exit 3"))

	_, err := caller.Invoke(context.Background(), ports.CallRequest{
		Name: "boom",
		URL:  "exec://boom",
	})

	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, domain.ActionErrStatus, actionErr.Kind)
	assert.Contains(t, actionErr.Error(), "code 3")
	assert.Contains(t, actionErr.Error(), "nope")
}

func TestInvokeClassifiesTimeout(t *testing.T) {
	caller := New(WithCommand("slow", "sleep", "5"))

	_, err := caller.Invoke(context.Background(), ports.CallRequest{
		Name:    "slow",
		URL:     "exec://slow",
		Timeout: 50 * time.Millisecond,
	})

	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, domain.ActionErrTimeout, actionErr.Kind)
}

func TestInvokeDelegatesNonExecURLs(t *testing.T) {
	delegated := false
	fallback := ports.ActionCallerFunc(func(ctx context.Context, req ports.CallRequest) (map[string]any, error) {
		delegated = true
		return map[string]any{"via": "fallback"}, nil
	})
	caller := New(WithFallback(fallback))

	out, err := caller.Invoke(context.Background(), ports.CallRequest{
		Name: "remote",
		URL:  "https://api.example.com/charge",
	})
	require.NoError(t, err)
	assert.True(t, delegated)
	assert.Equal(t, "fallback", out["via"])
}

func TestInvokeWithoutFallbackRejectsNonExecURLs(t *testing.T) {
	caller := New()

	_, err := caller.Invoke(context.Background(), ports.CallRequest{
		Name: "remote",
		URL:  "https://api.example.com/charge",
	})

	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, domain.ActionErrBinding, actionErr.Kind)
}
