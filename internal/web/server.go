// Package web exposes the resolution engine over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clinical-rosetta/internal/web/handlers"
	"github.com/clinical-rosetta/internal/web/middleware"
)

const shutdownTimeout = 30 * time.Second

// Server represents the web server
type Server struct {
	config     *Config
	engine     handlers.Resolver
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a new web server instance. A nil gatherer serves the
// default Prometheus registry.
func NewServer(config *Config, engine handlers.Resolver, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &Server{
		config:   config,
		engine:   engine,
		gatherer: gatherer,
		logger:   logger.Named("web"),
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	apiHandler := &handlers.APIHandler{
		Engine:   s.engine,
		Logger:   s.logger,
		MaxBatch: s.config.MaxBatch,
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/translate", apiHandler.Translate).Methods(http.MethodGet)
	api.HandleFunc("/translate/batch", apiHandler.BatchTranslate).Methods(http.MethodPost)
	api.HandleFunc("/confirm", apiHandler.Confirm).Methods(http.MethodPost)
	api.HandleFunc("/search", apiHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/concepts/{id}", apiHandler.GetConcept).Methods(http.MethodGet)
	api.HandleFunc("/stats", apiHandler.GetStats).Methods(http.MethodGet)

	s.router.HandleFunc("/health", apiHandler.Health).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(s.logger, "/health", "/metrics"))
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
