// Package mcp exposes the interpreter to agent clients over the Model
// Context Protocol: a run_code tool that executes a snippet and a
// run_history tool that reads back recent results.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sakif/code-interpreter/internal/apperror"
	"github.com/sakif/code-interpreter/internal/model"
	"github.com/sakif/code-interpreter/internal/service"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// handler holds shared dependencies for all tool handlers. Runs made over
// MCP are recorded without a user ID; there is no login on a stdio pipe.
type handler struct {
	runs   *service.RunService
	logger *slog.Logger
}

// NewServer creates an MCP server with the code execution tools registered.
func NewServer(runs *service.RunService, logger *slog.Logger) *mcp.Server {
	h := &handler{
		runs:   runs,
		logger: logger,
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "code-interpreter", Version: Version}, &mcp.ServerOptions{
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name: "run_code",
		Description: `Execute a Python snippet in the sandbox and return its output.

Output lines arrive with stderr first, then stdout, then a line stating the
elapsed time against the limit. A non-zero exit or a backend problem is
reported in the output rather than as a tool error.`,
	}, h.runCodeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "run_history",
		Description: `List recent executions made over this server, newest first.

Returns run IDs, outcome summaries, and timing. Use limit to page.`,
	}, h.runHistoryHandler)

	return s
}

type runCodeParams struct {
	Code         string `json:"code" jsonschema:"The Python source to execute."`
	ReuseSession bool   `json:"reuse_session,omitempty" jsonschema:"Keep interpreter state from the previous run instead of starting fresh. Defaults to false."`
}

func (h *handler) runCodeHandler(ctx context.Context, req *mcp.CallToolRequest, params runCodeParams) (*mcp.CallToolResult, any, error) {
	h.logger.Debug("run_code invoked",
		slog.Int("codeLen", len(params.Code)),
		slog.Bool("reuseSession", params.ReuseSession),
	)

	run, err := h.runs.Execute(ctx, "", params.Code, params.ReuseSession)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return errorResult(err.Error())
		}
		return errorResult(fmt.Sprintf("execution unavailable: %v", err))
	}

	var b strings.Builder
	for _, line := range run.Result.Output {
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteString("\n")
		}
	}
	if f := run.Result.Failure; f != nil {
		fmt.Fprintf(&b, "\n[%s failure", f.Kind)
		if f.ExitCode != 0 {
			fmt.Fprintf(&b, ", exit code %d", f.ExitCode)
		}
		b.WriteString("]\n")
	}
	if run.ID != "" {
		fmt.Fprintf(&b, "\nRun ID: %s\n", run.ID)
	}

	return textResult(b.String())
}

type runHistoryParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to return. Defaults to 20, capped at 100."`
}

func (h *handler) runHistoryHandler(ctx context.Context, req *mcp.CallToolRequest, params runHistoryParams) (*mcp.CallToolResult, any, error) {
	runs, err := h.runs.List(ctx, "", params.Limit, 0)
	if err != nil {
		return errorResult(fmt.Sprintf("listing runs failed: %v", err))
	}

	if len(runs) == 0 {
		return textResult("No runs recorded yet.")
	}

	return textResult(formatHistory(runs))
}

func formatHistory(runs []model.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d run(s), newest first:\n\n", len(runs))
	for _, r := range runs {
		outcome := "ok"
		if r.FailureKind != "" {
			outcome = r.FailureKind
			if r.ExitCode != 0 {
				outcome = fmt.Sprintf("%s (exit %d)", outcome, r.ExitCode)
			}
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			outcome,
			r.ExecTime,
		)
	}

	return b.String()
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
