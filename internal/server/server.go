package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/murphyslaws/murphys-laws/internal/errors"
	"github.com/murphyslaws/murphys-laws/internal/observability"
	"github.com/murphyslaws/murphys-laws/internal/server/handlers"
	servermw "github.com/murphyslaws/murphys-laws/internal/server/middleware"
	"github.com/murphyslaws/murphys-laws/internal/server/router"
)

// Options wires a Server. Zero timeouts fall back to the defaults below.
type Options struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	AllowedOrigins []string
	API            *handlers.API
	Health         *handlers.HealthManager
	ErrorReporter  router.ErrorReporter
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	api    *router.Router
	health *handlers.HealthManager
	server *http.Server
	opts   Options
}

// New builds the HTTP server: ops endpoints on chi, the public API on the
// path router mounted under /api.
func New(opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 120 * time.Second
	}
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager(handlers.AppVersion)
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("Not Found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("Method Not Allowed"))
	})

	s := &Server{
		router: r,
		health: opts.Health,
		opts:   opts,
	}

	handlers.SetHTTPErrorResponder(HandleError)

	s.api = router.New(
		router.WithAllowedOrigins(opts.AllowedOrigins),
		router.WithNotFound(handlers.NotFound),
		router.WithErrorReporter(opts.ErrorReporter),
	)

	s.registerRoutes()

	return s
}

// HandleError writes err through the shared envelope path.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
}

// Start listens and serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", s.Addr()),
			zap.Strings("allowed_origins", s.api.AllowedOrigins()))
	}

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// APIRoutes lists the registered /api routes in match order.
func (s *Server) APIRoutes() []router.Route {
	return s.api.Routes()
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.opts.Port
}
