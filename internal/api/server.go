package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"fragreel/internal/logging"
	"fragreel/internal/match"
	"fragreel/internal/pipeline"
	"fragreel/internal/services"
	"fragreel/internal/store"
	"fragreel/internal/workflow"
)

// Store is the read side the API browses.
type Store interface {
	ListMatches(ctx context.Context) ([]match.Record, error)
	GetMatch(ctx context.Context, id string) (*match.Record, error)
	ListRounds(ctx context.Context, matchID string) ([]match.Round, error)
	ListPlayerStats(ctx context.Context, matchID string) ([]match.PlayerStat, error)
	ListHighlights(ctx context.Context, matchID string) ([]match.Highlight, error)
	GetHighlight(ctx context.Context, id string) (*match.Highlight, error)
	PlayerHistory(ctx context.Context, steamID string) ([]store.PlayerMatch, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Ingester runs ingestion and match deletion.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (workflow.Summary, error)
	IngestDirectory(ctx context.Context, dir string) (workflow.BatchResult, error)
	DeleteMatch(ctx context.Context, id string) error
}

// Renderer drives video tasks.
type Renderer interface {
	CreateTask(ctx context.Context, highlightID, recordingPath, templateID string) (store.Task, error)
	ImportExternalVideo(ctx context.Context, highlightID, sourcePath, templateID string) (store.Task, error)
	Get(ctx context.Context, id string) (store.Task, error)
	List(ctx context.Context) ([]store.Task, error)
	Remove(ctx context.Context, id string) error
	Reporter() *pipeline.Reporter
}

// StatusFunc builds the status payload on demand.
type StatusFunc func(ctx context.Context) Status

// Backend bundles what the handlers call into.
type Backend struct {
	Store    Store
	Ingester Ingester
	Renderer Renderer
	Status   StatusFunc
}

// Server is the local HTTP API.
type Server struct {
	bind    string
	backend Backend
	logger  *slog.Logger
	router  chi.Router

	listener net.Listener
	server   *http.Server
	done     chan struct{}
	stopOnce sync.Once
}

// NewServer builds the router for backend. Nothing listens until Start.
func NewServer(bind string, backend Backend, logger *slog.Logger) (*Server, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "new server", "bind address is empty", nil)
	}
	if backend.Store == nil || backend.Ingester == nil || backend.Renderer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "new server", "backend is incomplete", nil)
	}
	s := &Server{
		bind:    bind,
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "api-server"),
		done:    make(chan struct{}),
	}
	s.router = s.routes()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, s.requestContext)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)
		r.Get("/templates", s.handleTemplates)
		r.Post("/ingest", s.handleIngest)

		r.Get("/matches", s.handleListMatches)
		r.Get("/matches/{id}", s.handleGetMatch)
		r.Delete("/matches/{id}", s.handleDeleteMatch)
		r.Get("/matches/{id}/highlights", s.handleMatchHighlights)

		r.Get("/highlights", s.handleAllHighlights)
		r.Post("/highlights/{id}/render", s.handleRender)
		r.Post("/highlights/{id}/import", s.handleImport)

		r.Get("/players/{steamID}", s.handlePlayerHistory)

		r.Get("/tasks", s.handleListTasks)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)

		r.Get("/events", s.handleEvents)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// requestContext stamps a correlation id on the request context and logs
// each request at debug level.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := services.WithRequestID(r.Context(), id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the bind address and serves until ctx ends or Stop is
// called. It returns the bound address.
func (s *Server) Start(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return "", fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	addr := listener.Addr().String()
	s.logger.Info("api server listening", logging.String("address", addr))
	return addr, nil
}

// Stop shuts the server down, giving in-flight requests five seconds.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	s.stopOnce.Do(func() { close(s.done) })
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
