package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/code-interpreter/internal/auth"
	"github.com/sakif/code-interpreter/internal/interpreter"
	"github.com/sakif/code-interpreter/internal/service"
)

// ExecuteHandler handles code execution requests.
type ExecuteHandler struct {
	runs   *service.RunService
	logger *slog.Logger
}

func NewExecuteHandler(runs *service.RunService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		runs:   runs,
		logger: logger,
	}
}

// ExecuteRequest is the body of POST /api/execute.
type ExecuteRequest struct {
	Code string `json:"code"`
	// ReuseSession asks the backend to keep interpreter state from the
	// caller's previous run. Defaults to false: a fresh session per run.
	ReuseSession bool `json:"reuseSession"`
}

// ExecuteResponse pairs the normalized result with the history record ID.
// RunID is empty when the run could not be recorded; the result is still
// authoritative.
type ExecuteResponse struct {
	RunID          string                      `json:"runId,omitempty"`
	Result         interpreter.ExecutionResult `json:"result"`
	ElapsedSeconds float64                     `json:"elapsedSeconds"`
}

// HandleExecute runs a code snippet and records the outcome.
//
// HTTP: POST /api/execute (auth required)
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body must be valid JSON",
		})
		return
	}

	run, err := h.runs.Execute(r.Context(), auth.UserID(r.Context()), req.Code, req.ReuseSession)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExecuteResponse{
		RunID:          run.ID,
		Result:         run.Result,
		ElapsedSeconds: run.Result.Seconds(),
	})
}
