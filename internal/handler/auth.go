package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/code-interpreter/internal/auth"
	"github.com/sakif/code-interpreter/internal/model"
	"github.com/sakif/code-interpreter/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler manages the GitHub OAuth login flow, sessions, and API tokens.
type AuthHandler struct {
	github *auth.GitHubProvider
	svc    *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(github *auth.GitHubProvider, svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		github: github,
		svc:    svc,
		logger: logger,
	}
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// A random state value is stored in a short-lived HttpOnly cookie and
// verified on callback, which blocks CSRF'd OAuth completions.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow: checks the state, exchanges
// the code, upserts the account, and sets the session cookie.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state missing or mismatched")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	sessionToken, _, err := h.svc.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// HttpOnly keeps the JWT out of reach of page scripts; SameSite=Lax
	// withholds it on cross-site POSTs. Secure belongs on in production.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int((15 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie. The JWT stays valid until expiry,
// but without the cookie the browser cannot present it.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated caller's profile.
//
// HTTP: GET /api/me (auth required)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// CreateTokenRequest is the body of POST /api/tokens.
type CreateTokenRequest struct {
	Name string `json:"name"`
}

// CreateTokenResponse carries the one-time plaintext credential alongside
// the stored record.
type CreateTokenResponse struct {
	Token     string         `json:"token"` // shown exactly once
	TokenInfo model.APIToken `json:"tokenInfo"`
}

// HandleCreateToken mints a new API token for agent callers.
//
// HTTP: POST /api/tokens (auth required)
func (h *AuthHandler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body must be valid JSON",
		})
		return
	}

	plaintext, token, err := h.svc.CreateAPIToken(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateTokenResponse{Token: plaintext, TokenInfo: *token})
}

// HandleListTokens returns the caller's API tokens (hashes excluded).
//
// HTTP: GET /api/tokens (auth required)
func (h *AuthHandler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.svc.ListAPITokens(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.APIToken{"tokens": tokens})
}

// HandleDeleteToken revokes one of the caller's API tokens.
//
// HTTP: DELETE /api/tokens/{id} (auth required)
func (h *AuthHandler) HandleDeleteToken(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteAPIToken(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
