// Package rest exposes the clustering pipeline over HTTP: train and extend
// endpoints, a health check and Prometheus metrics.
package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khanlab/neurobeer/pkg/api/rest/middleware"
	"github.com/khanlab/neurobeer/pkg/config"
	"github.com/khanlab/neurobeer/pkg/observability"
	"github.com/khanlab/neurobeer/pkg/pipeline"
)

// Server is the REST API server.
type Server struct {
	cfg        config.ServerConfig
	handler    *Handler
	httpServer *http.Server
	log        *observability.Logger
}

// NewServer creates a REST server around an orchestrator.
func NewServer(cfg config.ServerConfig, orch *pipeline.Orchestrator, log *observability.Logger) *Server {
	if log == nil {
		log = observability.Nop()
	}

	s := &Server{
		cfg:     cfg,
		handler: NewHandler(orch),
		log:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", s.handler.Health)
	mux.HandleFunc("/v1/cluster/train", s.handler.Train)
	mux.HandleFunc("/v1/cluster/extend", s.handler.Extend)
	mux.Handle("/metrics", promhttp.Handler())

	rl := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Enabled:        cfg.RateLimitPerSec > 0,
		RequestsPerSec: cfg.RateLimitPerSec,
		Burst:          cfg.RateLimitBurst,
	})
	auth := middleware.Auth(middleware.AuthConfig{
		JWTSecret:   cfg.JWTSecret,
		Enabled:     cfg.AuthEnabled,
		PublicPaths: []string{"/v1/health", "/metrics"},
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      rl.Middleware(auth(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("REST server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
