// Package server exposes the orchestration engine over HTTP: JSON
// request/response endpoints, NDJSON streaming variants, and a
// WebSocket hub that mirrors run events to connected dashboards.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/debate"
	"github.com/colloquyhq/colloquy/invoker"
	"github.com/colloquyhq/colloquy/logging"
	"github.com/colloquyhq/colloquy/store"
	"github.com/colloquyhq/colloquy/workflow"
)

// Options configure the HTTP server.
type Options struct {
	// Addr is the listen address, e.g. "0.0.0.0:8080".
	Addr string

	// Store records run history. Nil disables persistence.
	Store store.RunStore

	// Logger receives request and lifecycle events.
	Logger logging.Logger
}

// Server wires the orchestrator, debate coordinator and invoker to the
// HTTP API and owns the WebSocket hub.
type Server struct {
	agents   []core.AgentDescriptor
	agentsBy map[string]core.AgentDescriptor
	invoker  *invoker.Invoker
	orch     *workflow.Orchestrator
	debates  *debate.Coordinator
	runs     store.RunStore
	hub      *Hub
	addr     string
	logger   logging.Logger
}

// New creates a Server over the given engine components. The agent
// descriptors are the configured roster served by GET /api/agents and
// referenced by id in requests.
func New(agents []core.AgentDescriptor, inv *invoker.Invoker, orch *workflow.Orchestrator, deb *debate.Coordinator, optFns ...func(o *Options)) *Server {
	options := Options{
		Addr: "0.0.0.0:8080",
	}
	for _, fn := range optFns {
		fn(&options)
	}

	byID := make(map[string]core.AgentDescriptor, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}

	return &Server{
		agents:   agents,
		agentsBy: byID,
		invoker:  inv,
		orch:     orch,
		debates:  deb,
		runs:     options.Store,
		hub:      NewHub(logging.OrDefault(options.Logger)),
		addr:     options.Addr,
		logger:   logging.OrDefault(options.Logger),
	}
}

// Handler builds the chi router. Exposed separately from Start so tests
// can drive it with httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/agents", s.handleListAgents)
	r.Post("/api/chat", s.handleChat)

	r.Post("/api/workflow", s.handleWorkflow)
	r.Post("/api/workflow/stream", s.handleWorkflowStream)
	r.Post("/api/debate", s.handleDebate)
	r.Post("/api/debate/stream", s.handleDebateStream)

	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{id}", s.handleGetRun)

	r.Get("/api/ws", s.handleWebSocket)

	return r
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
}
