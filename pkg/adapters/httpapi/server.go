// Package httpapi exposes flows over HTTP: session lifecycle and turn
// processing per flow, flow administration, health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parleyflow/parley/internal/logging"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/flow"
	"github.com/parleyflow/parley/pkg/ports"
)

// FlowRunner is the engine surface the server drives. The root package's
// Flow satisfies it.
type FlowRunner interface {
	Definition() *domain.FlowDefinition
	StartSession(ctx context.Context, sessionID string) (*domain.TurnResult, error)
	TryProcessTurn(ctx context.Context, sessionID, turnID, input string) (*domain.TurnResult, error)
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	EndSession(ctx context.Context, sessionID string) error
}

// RunnerFactory builds a runner for a freshly stored flow definition so
// uploads become servable without a restart.
type RunnerFactory func(def *domain.FlowDefinition) (FlowRunner, error)

// Server routes flow and session operations to registered runners.
type Server struct {
	mu       sync.RWMutex
	runners  map[string]FlowRunner
	flows    ports.FlowStore
	factory  RunnerFactory
	logger   *slog.Logger
	registry *prometheus.Registry
}

// Option configures the server.
type Option func(*Server)

// WithFlowStore enables the flow administration endpoints.
func WithFlowStore(store ports.FlowStore, factory RunnerFactory) Option {
	return func(s *Server) {
		s.flows = store
		s.factory = factory
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry sets the Prometheus registry served at /metrics.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// NewServer creates a server seeded with the given runners.
func NewServer(runners map[string]FlowRunner, opts ...Option) *Server {
	s := &Server{
		runners: make(map[string]FlowRunner, len(runners)),
		logger:  logging.NewNop(),
	}
	for id, r := range runners {
		s.runners[id] = r
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds or replaces a runner.
func (s *Server) Register(flowID string, runner FlowRunner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[flowID] = runner
}

func (s *Server) runner(flowID string) (FlowRunner, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runners[flowID]
	return r, ok
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/flows", func(r chi.Router) {
		r.Get("/", s.handleListFlows)
		r.Route("/{flowID}", func(r chi.Router) {
			r.Get("/", s.handleGetFlow)
			r.Put("/", s.handlePutFlow)
			r.Delete("/", s.handleDeleteFlow)

			r.Post("/sessions", s.handleStartSession)
			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleEndSession)
				r.Post("/turns", s.handleTurn)
			})
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type turnResponse struct {
	SessionID string   `json:"session_id"`
	TurnID    string   `json:"turn_id,omitempty"`
	Messages  []string `json:"messages"`
	NodeID    string   `json:"node_id"`
	Completed bool     `json:"completed"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.runner(chi.URLParam(r, "flowID"))
	if !ok {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}

	var req startSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	res, err := runner.StartSession(r.Context(), req.SessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, turnResponse{
		SessionID: res.SessionID,
		Messages:  res.Messages,
		NodeID:    res.NodeID,
		Completed: res.Completed,
	})
}

type turnRequest struct {
	TurnID string `json:"turn_id,omitempty"`
	Input  string `json:"input"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.runner(chi.URLParam(r, "flowID"))
	if !ok {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := runner.TryProcessTurn(r.Context(), sessionID, req.TurnID, req.Input)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{
		SessionID: sessionID,
		TurnID:    res.TurnID,
		Messages:  res.Messages,
		NodeID:    res.NodeID,
		Completed: res.Completed,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.runner(chi.URLParam(r, "flowID"))
	if !ok {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}

	sess, err := runner.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.runner(chi.URLParam(r, "flowID"))
	if !ok {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}
	if err := runner.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.runners))
	for id := range s.runners {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	if s.flows != nil {
		stored, err := s.flows.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "listing flows failed")
			return
		}
		for _, id := range stored {
			if _, ok := s.runner(id); !ok {
				ids = append(ids, id)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"flows": ids})
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	if runner, ok := s.runner(flowID); ok {
		writeJSON(w, http.StatusOK, runner.Definition())
		return
	}
	if s.flows != nil {
		def, err := s.flows.Get(r.Context(), flowID)
		if err == nil {
			writeJSON(w, http.StatusOK, def)
			return
		}
	}
	writeError(w, http.StatusNotFound, "flow not found")
}

func (s *Server) handlePutFlow(w http.ResponseWriter, r *http.Request) {
	if s.flows == nil {
		writeError(w, http.StatusNotImplemented, "flow administration is not enabled")
		return
	}
	flowID := chi.URLParam(r, "flowID")

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := flow.Decode(raw)
	if err == nil {
		err = flow.Validate(def)
	}
	if err != nil {
		var ie *domain.IntegrityError
		if errors.As(err, &ie) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":      "flow failed integrity validation",
				"violations": ie.Violations,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if def.ID != flowID {
		writeError(w, http.StatusBadRequest, "flow id in body does not match URL")
		return
	}

	if err := s.flows.Put(r.Context(), def); err != nil {
		s.logger.Error("storing flow failed", "flow", flowID, "err", err)
		writeError(w, http.StatusInternalServerError, "storing flow failed")
		return
	}

	if s.factory != nil {
		runner, err := s.factory(def)
		if err != nil {
			s.logger.Error("building runner failed", "flow", flowID, "err", err)
			writeError(w, http.StatusInternalServerError, "flow stored but not servable")
			return
		}
		s.Register(flowID, runner)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	if s.flows == nil {
		writeError(w, http.StatusNotImplemented, "flow administration is not enabled")
		return
	}
	flowID := chi.URLParam(r, "flowID")

	if err := s.flows.Delete(r.Context(), flowID); err != nil {
		writeError(w, http.StatusInternalServerError, "deleting flow failed")
		return
	}
	s.mu.Lock()
	delete(s.runners, flowID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrSessionExists):
		writeError(w, http.StatusConflict, "session already exists")
	case errors.Is(err, domain.ErrConcurrentTurn):
		writeError(w, http.StatusConflict, "another turn is in progress")
	case errors.Is(err, domain.ErrSessionCompleted):
		writeError(w, http.StatusGone, "session already completed")
	default:
		var aerr *domain.ActionError
		if errors.As(err, &aerr) {
			s.logger.Error("action failed", "action", aerr.Action, "kind", aerr.Kind, "err", aerr.Err)
			writeError(w, http.StatusBadGateway, "a backend action failed")
			return
		}
		s.logger.Error("turn failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
