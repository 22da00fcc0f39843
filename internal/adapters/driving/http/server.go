package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	authService     driving.AuthService
	aiService       driving.AIService
	editingService  driving.EditingService
	settingsService driving.SettingsService

	// Infrastructure
	db          Pinger // PostgreSQL health check (optional)
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	aiService driving.AIService,
	editingService driving.EditingService,
	settingsService driving.SettingsService,
	db Pinger, // can be nil
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		authService:     authService,
		aiService:       aiService,
		editingService:  editingService,
		settingsService: settingsService,
		db:              db,
		redisClient:     redisClient,
	}

	var handler http.Handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	handler = NewLoggingMiddleware().Handler(handler)
	handler = NewRecoveryMiddleware().Handler(handler)

	// WriteTimeout stays unset: event streams outlive any fixed deadline.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Catalog endpoints (public)
	s.router.HandleFunc("GET /api/v1/actions", s.handleListActions)
	s.router.Handle("GET /api/v1/providers",
		authMiddleware.Optional(http.HandlerFunc(s.handleListProviders)))

	// AI endpoints accept anonymous callers; the usage policy refuses them
	// with auth.required where the provider needs an entitlement.
	s.router.Handle("POST /api/v1/documents/{id}/actions/{action}",
		authMiddleware.Optional(http.HandlerFunc(s.handleExecuteAction)))
	s.router.Handle("POST /api/v1/documents/{id}/actions/{action}/stream",
		authMiddleware.Optional(http.HandlerFunc(s.handleStreamAction)))

	// Editing endpoints (authenticated)
	s.router.Handle("POST /api/v1/documents/{id}/proposals/apply",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleApplyProposal)))
	s.router.Handle("POST /api/v1/documents/{id}/undo",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUndo)))
	s.router.Handle("POST /api/v1/documents/{id}/redo",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRedo)))
	s.router.Handle("POST /api/v1/documents/{id}/groups/{group}/rollback",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRollbackGroup)))
	s.router.Handle("POST /api/v1/documents/{id}/groups/{group}/reapply",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleReapplyGroup)))
	s.router.Handle("GET /api/v1/documents/{id}/history",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleHistory)))

	// AI settings endpoints (admin-only)
	s.router.Handle("GET /api/v1/settings/ai",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleGetAISettings))))
	s.router.Handle("PUT /api/v1/settings/ai",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpdateAISettings))))
	s.router.Handle("GET /api/v1/settings/ai/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetAIStatus)))
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
