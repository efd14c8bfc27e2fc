package httpcall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

func TestInvokePostsJSONAndDecodes(t *testing.T) {
	var gotBody map[string]any
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotHeader = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"name": "Ada"}}`))
	}))
	defer srv.Close()

	out, err := New().Invoke(context.Background(), ports.CallRequest{
		Name:    "lookup",
		URL:     srv.URL,
		Headers: map[string]string{"X-Api-Key": "secret"},
		Body:    map[string]any{"id": "c-42"},
	})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, map[string]any{"id": "c-42"}, gotBody)
	assert.Equal(t, map[string]any{"data": map[string]any{"name": "Ada"}}, out)
}

func TestInvokeGetWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := New().Invoke(context.Background(), ports.CallRequest{
		Name:   "ping",
		URL:    srv.URL,
		Method: "get",
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestInvokeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New().Invoke(context.Background(), ports.CallRequest{Name: "lookup", URL: srv.URL})

	var aerr *domain.ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, domain.ActionErrStatus, aerr.Kind)
	assert.Contains(t, aerr.Error(), "502")
}

func TestInvokeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New().Invoke(context.Background(), ports.CallRequest{
		Name:    "slow",
		URL:     srv.URL,
		Timeout: 20 * time.Millisecond,
	})

	var aerr *domain.ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, domain.ActionErrTimeout, aerr.Kind)
}

func TestInvokeNetworkError(t *testing.T) {
	// A closed server gives a connection refusal.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New().Invoke(context.Background(), ports.CallRequest{Name: "down", URL: url})

	var aerr *domain.ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, domain.ActionErrNetwork, aerr.Kind)
}

func TestInvokeNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>hi</html>"))
	}))
	defer srv.Close()

	_, err := New().Invoke(context.Background(), ports.CallRequest{Name: "weird", URL: srv.URL})

	var aerr *domain.ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, domain.ActionErrBinding, aerr.Kind)
}

func TestInvokeWrapsNonObjectJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1, 2, 3]`))
	}))
	defer srv.Close()

	out, err := New().Invoke(context.Background(), ports.CallRequest{Name: "list", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": []any{float64(1), float64(2), float64(3)}}, out)
}
