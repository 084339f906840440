package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harun/vtool/internal/observability"
	"github.com/harun/vtool/pkg/catalog"
	"github.com/harun/vtool/pkg/planner"
	"github.com/harun/vtool/pkg/virtualtool"
	"github.com/rs/zerolog"
)

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, question string) (planner.Answer, error)
}

// Config holds server configuration
type Config struct {
	Host              string
	Port              int
	Asker             Asker
	Catalog           *catalog.Catalog
	Store             *virtualtool.Store
	RequestsPerMinute int
	MaxConcurrent     int
	// AskTimeout bounds a single ask; zero means no bound beyond the client's.
	AskTimeout time.Duration
	Logger     zerolog.Logger
}

// Server is the HTTP presentation boundary
type Server struct {
	addr       string
	asker      Asker
	catalog    *catalog.Catalog
	store      *virtualtool.Store
	askTimeout time.Duration
	router     *chi.Mux
	server     *http.Server
	listener   net.Listener
	logger     zerolog.Logger
}

// NewServer creates a new Server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Asker == nil {
		return nil, fmt.Errorf("asker is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	observability.EnsureRegistered()

	s := &Server{
		addr:       net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		asker:      cfg.Asker,
		catalog:    cfg.Catalog,
		store:      cfg.Store,
		askTimeout: cfg.AskTimeout,
		logger:     cfg.Logger,
	}
	s.router = s.routes(NewRateLimiter(cfg.RequestsPerMinute, cfg.MaxConcurrent))
	return s, nil
}

func (s *Server) routes(limiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", observability.MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(limiter.Middleware).Post("/ask", s.handleAsk)
		r.Get("/tools", s.handleListTools)
		r.Get("/tools/{name}", s.handleDescribeTool)
		r.Get("/virtual-tools", s.handleListVirtualTools)
	})

	return r
}

// Handler returns the HTTP handler, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address; after Start it is the bound address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start listens and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting HTTP server")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return nil
}

// Stop gracefully stops the server, waiting for in-flight requests until ctx is done
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
