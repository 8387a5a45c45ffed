package docker

import (
	"time"
)

// Config holds the configuration for the Docker backend.
type Config struct {
	// Image is the Docker image executions run in.
	Image string
	// MemoryLimit is the maximum amount of memory a container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs a container can use.
	CPULimit float64
	// DefaultTimeout bounds an execution when the request carries no timeout
	// of its own.
	DefaultTimeout time.Duration
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
}

// DefaultConfig provides sensible defaults for a Python sandbox.
func DefaultConfig() Config {
	return Config{
		// Lightweight python image
		Image: "python:3.12-alpine",
		// 256 MB memory limit
		MemoryLimit: 256 * 1024 * 1024,
		// 0.5 CPU shares
		CPULimit: 0.5,
		// Generous fallback; the interpreter passes its own limit per request
		DefaultTimeout: 3600 * time.Second,
		PoolSize:       3,
	}
}
