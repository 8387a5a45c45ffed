package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/code-interpreter/internal/auth"
	"github.com/sakif/code-interpreter/internal/model"
	"github.com/sakif/code-interpreter/internal/service"
)

// RunHandler serves the execution history.
type RunHandler struct {
	runs   *service.RunService
	logger *slog.Logger
}

func NewRunHandler(runs *service.RunService, logger *slog.Logger) *RunHandler {
	return &RunHandler{
		runs:   runs,
		logger: logger,
	}
}

// ListResponse wraps the run list so pagination fields can be added without
// changing the top-level shape.
type ListResponse struct {
	Runs   []model.Run `json:"runs"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// HandleList returns the caller's runs, newest first.
//
// HTTP: GET /api/runs?limit=20&offset=0 (auth required)
func (h *RunHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	runs, err := h.runs.List(r.Context(), auth.UserID(r.Context()), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	if limit <= 0 {
		limit = service.DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	writeJSON(w, http.StatusOK, ListResponse{Runs: runs, Limit: limit, Offset: offset})
}

// HandleGet returns one run by ID, owner-scoped.
//
// HTTP: GET /api/runs/{id} (auth required)
func (h *RunHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetByID(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}
