// Package main starts the code interpreter as an MCP server on stdio, for
// agent clients that speak the Model Context Protocol.
//
// Configuration mirrors cmd/server: SANDBOX selects the backend, DB_PATH
// locates the history database, EXEC_TIMEOUT bounds each run. Logs go to
// stderr — stdout belongs to the protocol.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sakif/code-interpreter/internal/interpreter"
	"github.com/sakif/code-interpreter/internal/mcp"
	"github.com/sakif/code-interpreter/internal/repository/sqlite"
	"github.com/sakif/code-interpreter/internal/sandbox"
	"github.com/sakif/code-interpreter/internal/sandbox/docker"
	"github.com/sakif/code-interpreter/internal/sandbox/local"
	"github.com/sakif/code-interpreter/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := serve(ctx, logger); err != nil {
		logger.Error("mcp server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// logLevel maps LOG_LEVEL to an slog level, defaulting to info: stderr is
// shared with the agent's own diagnostics, so debug is opt-in here.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func serve(ctx context.Context, logger *slog.Logger) error {
	dbPath := "data/interpreter.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return err
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	backend, closeBackend, err := newBackend(logger)
	if err != nil {
		return err
	}
	if closeBackend != nil {
		defer closeBackend()
	}

	cfg := interpreter.Config{
		WorkingDir: os.Getenv("WORK_DIR"),
	}
	if timeoutStr := os.Getenv("EXEC_TIMEOUT"); timeoutStr != "" {
		seconds, err := strconv.Atoi(timeoutStr)
		if err != nil || seconds <= 0 {
			logger.Warn("ignoring invalid EXEC_TIMEOUT", slog.String("value", timeoutStr))
		} else {
			cfg.Timeout = time.Duration(seconds) * time.Second
		}
	}

	interp := interpreter.New(cfg, backend, logger)
	runs := service.NewRunService(interp, db, logger)

	server := mcp.NewServer(runs, logger)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func newBackend(logger *slog.Logger) (sandbox.Sandbox, func() error, error) {
	switch os.Getenv("SANDBOX") {
	case "", "docker":
		backend, err := docker.New(docker.DefaultConfig(), logger)
		if err != nil {
			// The tools still list; run_code reports the problem per call.
			logger.Warn("Docker backend unavailable — run_code will fail",
				slog.String("error", err.Error()),
			)
			return nil, nil, nil
		}
		return backend, backend.Close, nil

	case "local":
		backend, err := local.New(logger, os.Getenv("SANDBOX_LOCAL_I_UNDERSTAND") == "yes")
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil

	default:
		logger.Warn("unknown SANDBOX value, falling back to no backend",
			slog.String("value", os.Getenv("SANDBOX")),
		)
		return nil, nil, nil
	}
}
