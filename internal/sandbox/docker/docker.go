// Package docker implements the sandbox contract on the Docker Engine API.
//
// Each execution acquires a pre-warmed container from a pool, execs the
// requested command inside it with the code payload attached to stdin, and
// removes the container afterwards. Containers run with no network, a
// read-only root filesystem, and memory/CPU caps.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/code-interpreter/internal/sandbox"
)

// TimeoutExitCode is reported when an execution exceeds its time limit,
// mirroring the unix timeout command.
const TimeoutExitCode = 124

// Backend implements sandbox.Sandbox using Docker.
type Backend struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

var _ sandbox.Sandbox = (*Backend)(nil)

// New creates a Docker backend, pulls the configured image, and starts the
// container pool.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	// Make sure the image is pulled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	io.Copy(io.Discard, reader)
	logger.Info("docker image is ready")

	b := &Backend{
		cli:    cli,
		config: cfg,
		logger: logger,
	}

	b.pool = NewPool(cli, cfg, logger)
	b.pool.Start()

	return b, nil
}

// Close shuts down the container pool and the docker client.
func (b *Backend) Close() error {
	b.pool.Stop()
	return b.cli.Close()
}

// Exec runs the requested command in a sandboxed container, feeding the
// input payload on stdin. A run that exceeds its timeout is reported with
// TimeoutExitCode rather than an error: from the caller's point of view the
// code ran and was killed, which is a runtime outcome, not a dispatch one.
//
// Sessions are not supported — every execution gets a fresh container, so
// the FreshSession hint is a no-op.
func (b *Backend) Exec(ctx context.Context, req sandbox.ExecRequest) (*sandbox.ExecResponse, error) {
	if len(req.Command) == 0 {
		return nil, fmt.Errorf("docker: empty command")
	}

	containerID, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container from pool: %w", err)
	}

	// Always clean up the container we acquired; containers are single-use.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := b.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{
			Force: true,
		})
		if err != nil {
			b.logger.Error("failed to remove container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = b.config.DefaultTimeout
	}

	// The timeout context bounds the exec wait only
	executeCtx, executeCancel := context.WithTimeout(ctx, timeout)
	defer executeCancel()

	// The pooled container idles on `sleep infinity`, so the code runs as a
	// `docker exec` with stdin attached for the payload.
	execConfig := container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   req.Dir,
		Cmd:          req.Command,
	}

	execResp, err := b.cli.ContainerExecCreate(executeCtx, containerID, execConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := b.cli.ContainerExecAttach(executeCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	// Feed the payload and close the write side so the interpreter sees EOF.
	go func() {
		if req.Input != "" {
			_, _ = attachResp.Conn.Write([]byte(req.Input))
		}
		_ = attachResp.CloseWrite()
	}()

	var stdout, stderr bytes.Buffer

	done := make(chan struct{})
	go func() {
		// stdcopy demultiplexes stdout from stderr
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	var finalExitCode int

	select {
	case <-done:
		// Completed normally
		inspectResp, err := b.cli.ContainerExecInspect(ctx, execResp.ID)
		if err == nil {
			finalExitCode = inspectResp.ExitCode
		}
	case <-executeCtx.Done():
		// Timeout reached
		finalExitCode = TimeoutExitCode
		stderr.WriteString("\nExecution timed out.\n")
	}

	return &sandbox.ExecResponse{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: finalExitCode,
	}, nil
}
