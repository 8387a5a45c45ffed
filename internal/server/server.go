// Package server wires the application together: router, middleware,
// handlers, and graceful shutdown. It is the composition root — every
// dependency chain is assembled here, so main stays minimal.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/code-interpreter/internal/auth"
	"github.com/sakif/code-interpreter/internal/handler"
	"github.com/sakif/code-interpreter/internal/interpreter"
	"github.com/sakif/code-interpreter/internal/middleware"
	sqliteRepo "github.com/sakif/code-interpreter/internal/repository/sqlite"
	"github.com/sakif/code-interpreter/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret enables authentication. Empty disables the auth routes
	// entirely; the API then only serves unauthenticated history (none) and
	// execution is refused by RequireAuth, so a secret is effectively
	// mandatory for the HTTP surface.
	JWTSecret string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router, the database handle, and the interpreter. The
// database is closed during Start's shutdown path.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	interp *interpreter.Interpreter
}

// New assembles the full dependency chain. interp may wrap a nil backend;
// execution requests then fail with a 500 while the rest of the API works.
func New(cfg Config, logger *slog.Logger, interp *interpreter.Interpreter) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		interp: interp,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if s.config.JWTSecret == "" {
		s.logger.Warn("JWT secret not set — API routes are not registered")
		return nil
	}

	jwt, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	runService := service.NewRunService(s.interp, s.db, s.logger)
	authService := service.NewAuthService(s.db, s.db, jwt, auth.NewSecretService(), s.logger)

	executeHandler := handler.NewExecuteHandler(runService, s.logger)
	runHandler := handler.NewRunHandler(runService, s.logger)

	var githubProvider *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		githubProvider = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth credentials not set — browser login is disabled")
	}
	authHandler := handler.NewAuthHandler(githubProvider, authService, s.logger)

	if githubProvider != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwt, authService))

		r.Post("/execute", executeHandler.HandleExecute)
		r.Get("/runs", runHandler.HandleList)
		r.Get("/runs/{id}", runHandler.HandleGet)

		r.Get("/me", authHandler.HandleMe)
		r.Post("/tokens", authHandler.HandleCreateToken)
		r.Get("/tokens", authHandler.HandleListTokens)
		r.Delete("/tokens/{id}", authHandler.HandleDeleteToken)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Hour, // executions can legitimately run for the full time limit
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
