package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/config"
	"github.com/sheetmark/sheetmark/internal/grader"
	"github.com/sheetmark/sheetmark/internal/home"
	"github.com/sheetmark/sheetmark/internal/server/endpoints"
	"github.com/sheetmark/sheetmark/internal/session"
	"github.com/sheetmark/sheetmark/internal/svcctx"
)

// Server is the main Sheetmark HTTP server. When configured to manage
// the grading service it also owns that container's lifecycle -
// starting it on server start and stopping it on shutdown.
type Server struct {
	httpServer    *http.Server
	graderManager *grader.DockerManager
	graderClient  *grader.Client
	sessions      *session.Store
	homeDir       *home.Dir
	configMgr     *config.Manager
	logger        *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 4477)
	Port string
	// GraderBaseURL points at an already-running grading service.
	// Ignored when Managed is set.
	GraderBaseURL string
	// Managed starts and stops the grading service container.
	Managed bool
	// GraderConfig holds grading service container settings
	GraderConfig grader.DockerConfig
	// Home is the data directory layout (library, reports)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "4477"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		homeDir:   cfg.Home,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	if cfg.Managed {
		graderManager, err := grader.NewDockerManager(cfg.GraderConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create grader manager: %w", err)
		}
		s.graderManager = graderManager
	} else if cfg.GraderBaseURL != "" {
		s.graderClient = grader.NewClient(cfg.GraderBaseURL)
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{GraderManager: s.graderManager}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // grading runs block the response
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server, and the grading service container when
// managed. It blocks until the context is cancelled or an error occurs.
// If an existing grader container exists, it validates the
// configuration matches.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.homeDir != nil {
		if err := s.homeDir.EnsureExists(); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if s.graderManager != nil {
		// Validate any existing container matches our config
		if err := s.graderManager.ValidateExisting(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("existing grader container incompatible: %w", err)
		}

		s.logger.Info("starting grading service")
		if err := s.graderManager.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start grading service: %w", err)
		}
		s.graderClient = grader.NewClient(s.graderManager.URL())
		s.logger.Info("grading service is ready", "url", s.graderManager.URL())
	}

	// An unreachable grading service does not block editing; grading
	// calls surface the failure per request.
	if s.graderClient != nil {
		if err := s.graderClient.HealthCheck(ctx); err != nil {
			s.logger.Warn("grading service unreachable", "error", err)
		}
	}

	s.sessions = session.NewStore()

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Sessions:      s.sessions,
		Grader:        s.graderClient,
		GraderManager: s.graderManager,
		ConfigManager: s.configMgr,
		Logger:        s.logger,
		Home:          s.homeDir,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown() // Clean up the grader container on HTTP error
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and, when
// managed, the grading service container.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.graderManager != nil {
		s.logger.Info("stopping grading service")
		if err := s.graderManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("grading service stop error", "error", err)
		}
		if err := s.graderManager.Close(); err != nil {
			s.logger.Error("grader manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Sessions returns the session store.
// Returns nil if the server hasn't started yet.
func (s *Server) Sessions() *session.Store {
	return s.sessions
}

// GraderClient returns the grading service client.
// Returns nil when no grading service is configured or started.
func (s *Server) GraderClient() *grader.Client {
	return s.graderClient
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the session store is ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
