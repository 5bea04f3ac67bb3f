// Package server - тонкий HTTP-слой над FinderService.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/metrics"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/service"
)

type Config struct {
	Addr string
	// WriteTimeout должен покрывать стрим провайдера с ретраями
	WriteTimeout time.Duration
}

type Deps struct {
	Finder         service.FinderService
	Logger         *zap.Logger
	MetricsHandler http.Handler
}

type Server struct {
	router *chi.Mux
	server *http.Server
	finder service.FinderService
	logger *zap.Logger
	cfg    Config
}

func New(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MetricsHandler == nil {
		deps.MetricsHandler = metrics.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog(deps.Logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "the requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "the requested method is not allowed for this resource")
	})

	s := &Server{
		router: r,
		finder: deps.Finder,
		logger: deps.Logger,
		cfg:    cfg,
	}
	s.registerRoutes(deps.MetricsHandler)

	return s
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting http server", zap.String("addr", s.cfg.Addr))

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.router
}
