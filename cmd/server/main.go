// Package main starts the code interpreter HTTP server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/code-interpreter/internal/interpreter"
	"github.com/sakif/code-interpreter/internal/sandbox"
	"github.com/sakif/code-interpreter/internal/sandbox/docker"
	"github.com/sakif/code-interpreter/internal/sandbox/local"
	"github.com/sakif/code-interpreter/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/interpreter.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	backend, closeBackend := newBackend(logger)
	if closeBackend != nil {
		defer closeBackend()
	}

	interp := interpreter.New(interpreterConfig(logger), backend, logger)

	// JWT_SECRET must be a long random string, e.g. $(openssl rand -hex 32).
	// If unset, the API routes are not registered.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set — API is disabled")
	}

	githubCallbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if githubCallbackURL == "" {
		githubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", port)
	}

	cfg := server.Config{
		Port:               port,
		DBPath:             dbPath,
		JWTSecret:          jwtSecret,
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  githubCallbackURL,
	}

	srv, err := server.New(cfg, logger, interp)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// logLevel maps LOG_LEVEL to an slog level, defaulting to debug.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// interpreterConfig reads the execution settings from the environment.
func interpreterConfig(logger *slog.Logger) interpreter.Config {
	cfg := interpreter.Config{
		WorkingDir: os.Getenv("WORK_DIR"),
	}

	if timeoutStr := os.Getenv("EXEC_TIMEOUT"); timeoutStr != "" {
		seconds, err := strconv.Atoi(timeoutStr)
		if err != nil || seconds <= 0 {
			logger.Error("invalid EXEC_TIMEOUT value", slog.String("value", timeoutStr))
			os.Exit(1)
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	return cfg
}

// newBackend selects the sandbox backend from the SANDBOX env var.
//
// "docker" (the default) runs code in pooled containers; when the daemon is
// unreachable the server still starts, with execution unavailable. "local"
// runs code directly on the host and must be opted into explicitly with
// SANDBOX_LOCAL_I_UNDERSTAND=yes.
func newBackend(logger *slog.Logger) (sandbox.Sandbox, func() error) {
	switch os.Getenv("SANDBOX") {
	case "", "docker":
		backend, err := docker.New(docker.DefaultConfig(), logger)
		if err != nil {
			logger.Warn("Docker backend unavailable — execution requests will fail",
				slog.String("error", err.Error()),
			)
			return nil, nil
		}
		return backend, backend.Close

	case "local":
		backend, err := local.New(logger, os.Getenv("SANDBOX_LOCAL_I_UNDERSTAND") == "yes")
		if err != nil {
			logger.Error("local backend refused", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return backend, nil

	default:
		logger.Error("unknown SANDBOX value", slog.String("value", os.Getenv("SANDBOX")))
		os.Exit(1)
		return nil, nil
	}
}
