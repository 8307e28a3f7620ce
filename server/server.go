// Package server exposes draft generation over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martinemde/lexdraft/drafting"
	"github.com/martinemde/lexdraft/unifiedllm"
)

const maxBodyBytes = 1 << 20

// Drafter is the generation surface served over HTTP. *drafting.Service
// implements it.
type Drafter interface {
	GenerateDocument(ctx context.Context, req drafting.DraftRequest) (string, error)
	GenerateDocumentSafe(ctx context.Context, req drafting.DraftRequest) string
	StreamDocument(ctx context.Context, req drafting.DraftRequest, onChunk unifiedllm.ChunkFunc, opts ...drafting.StreamOption) (string, error)
	Models() drafting.Models
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server serves the lexdraft HTTP API.
type Server struct {
	drafter  Drafter
	logger   *slog.Logger
	bind     string
	metrics  http.Handler
	checks   map[string]HealthCheck
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBind sets the listen address used by Run.
func WithBind(addr string) Option {
	return func(s *Server) { s.bind = addr }
}

// WithMetricsHandler replaces the default Prometheus handler on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// New creates a Server over d.
func New(d Drafter, opts ...Option) *Server {
	s := &Server{
		drafter: d,
		bind:    "127.0.0.1:8080",
		metrics: promhttp.Handler(),
		checks:  make(map[string]HealthCheck),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "api-server")
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/documents", s.handleGenerate)
	mux.HandleFunc("POST /v1/documents/stream", s.handleStream)
	mux.HandleFunc("GET /v1/documents/ws", s.handleWS)
	mux.HandleFunc("GET /v1/document-types", s.handleDocumentTypes)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics)
	return mux
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("api server listening", "address", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// errorBody is the JSON error payload of every endpoint.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func newErrorBody(err error) errorBody {
	ce := unifiedllm.Classify(err)
	body := errorBody{Error: ce.Message, Kind: string(ce.Kind)}
	var fe *drafting.FieldError
	if errors.As(err, &fe) {
		body.Field = fe.Field
	}
	return body
}

// statusFor maps an error kind to the HTTP status returned to clients.
func statusFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return 499
	}
	switch unifiedllm.KindOf(err) {
	case unifiedllm.KindValidation:
		return http.StatusBadRequest
	case unifiedllm.KindRateLimit:
		return http.StatusTooManyRequests
	case unifiedllm.KindTimeout:
		return http.StatusGatewayTimeout
	case unifiedllm.KindContentFilter:
		return http.StatusUnprocessableEntity
	case unifiedllm.KindAuth, unifiedllm.KindModel, unifiedllm.KindAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorBody{Error: message})
}
