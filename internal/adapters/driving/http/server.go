// Package http is the thin REST surface over the analysis services.
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	analysisService  driving.AnalysisService
	optimizerService driving.OptimizerService
	adminService     driving.StoreAdminService

	// Infrastructure
	authAdapter driven.AuthAdapter
	db          Pinger // store backend health check
}

// Config holds server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg Config,
	analysisService driving.AnalysisService,
	optimizerService driving.OptimizerService,
	adminService driving.StoreAdminService,
	authAdapter driven.AuthAdapter,
	db Pinger,
) *Server {
	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		analysisService:  analysisService,
		optimizerService: optimizerService,
		adminService:     adminService,
		authAdapter:      authAdapter,
		db:               db,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           logRequests(s.router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	auth := NewAuthMiddleware(s.authAdapter)

	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("POST /api/v1/token", s.handleToken)

	// Authenticated
	s.router.Handle("POST /api/v1/analyze", auth.Authenticate(http.HandlerFunc(s.handleAnalyze)))
	s.router.Handle("POST /api/v1/optimize", auth.Authenticate(http.HandlerFunc(s.handleOptimize)))
	s.router.Handle("GET /api/v1/profiles/{id}", auth.Authenticate(http.HandlerFunc(s.handleGetProfile)))

	// Admin
	s.router.Handle("GET /api/v1/admin/profiles", auth.Authenticate(auth.RequireAdmin(http.HandlerFunc(s.handleListProfiles))))
	s.router.Handle("GET /api/v1/admin/profiles/count", auth.Authenticate(auth.RequireAdmin(http.HandlerFunc(s.handleCountProfiles))))
	s.router.Handle("DELETE /api/v1/admin/profiles/{id}", auth.Authenticate(auth.RequireAdmin(http.HandlerFunc(s.handleDeleteProfile))))
}

// Start begins serving and blocks until ctx is cancelled or the listener
// fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
