package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/bbflame/pkg/buildinfo"
	"github.com/matzehuels/bbflame/pkg/cache"
	"github.com/matzehuels/bbflame/pkg/pipeline"
	"github.com/matzehuels/bbflame/pkg/session"
	"github.com/matzehuels/bbflame/pkg/trace"
	"github.com/matzehuels/bbflame/pkg/viewport"
)

// Server timeouts.
const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 60 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

// DefaultCleanupInterval is how often expired sessions are swept.
const DefaultCleanupInterval = time.Minute

// Config configures a Server. Only Source is required.
type Config struct {
	Source *trace.Source
	Labels *trace.Labels

	// Store holds view sessions; defaults to an in-memory store.
	Store session.Store
	// SessionTTL is the idle lifetime of new sessions.
	SessionTTL time.Duration
	// Cache stores rendered frames; defaults to no caching.
	Cache cache.Cache

	Geometry     viewport.Geometry
	Step         int64
	DefaultWidth int64
	// Seed makes every session draw the same colors. Zero draws fresh
	// colors per session.
	Seed uint64

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *log.Logger
}

// Server is the HTTP viewer.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	router chi.Router
}

// New creates a server for cfg.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.Store == nil {
		cfg.Store = session.NewMemoryStore(cfg.SessionTTL)
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.Geometry == (viewport.Geometry{}) {
		cfg.Geometry = viewport.DefaultGeometry()
	}
	if cfg.Step <= 0 {
		cfg.Step = viewport.DefaultStep
	}
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = pipeline.DefaultWidth
	}

	s := &Server{
		cfg:    cfg,
		runner: pipeline.NewRunner(cfg.Cache, nil, cfg.Logger),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.cfg.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, r, http.StatusOK, buildinfo.Get())
	})
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/roots", s.handleRoots)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/root/{index}", s.handleSelectRoot)
			r.Post("/scroll", s.handleScroll)
			r.Get("/frame.{format}", s.handleFrame)
		})
	})
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Expired sessions are swept in the background.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	go s.sweep(ctx, DefaultCleanupInterval)

	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("serving", "addr", "http://"+addr, "roots", len(s.cfg.Source.Roots()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.cfg.Logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.cfg.Store.Cleanup(ctx)
			if err != nil {
				s.cfg.Logger.Warn("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				s.cfg.Logger.Debug("expired sessions", "count", n)
			}
		}
	}
}

// Close releases the frame cache.
func (s *Server) Close() error {
	return s.runner.Close()
}
