package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ericfisherdev/devisible/internal/application"
	"github.com/ericfisherdev/devisible/internal/domain/model"
	"github.com/ericfisherdev/devisible/internal/domain/port/driven"
)

// GetSession reports the logged-in user, or null when there is none. The
// backend is asked every time so that a session ended elsewhere is noticed.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(w, r)
	if err != nil {
		h.logger.Error("failed to resolve session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, SessionResponse{User: nil})
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), session)
	if err != nil && !errors.Is(err, driven.ErrUnauthenticated) {
		h.logger.Error("failed to check backend session", "username", session.Username, "error", err)
		writeError(w, http.StatusBadGateway, "failed to check session")
		return
	}
	if user == nil {
		h.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, SessionResponse{User: nil})
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		User:      &UserResponse{Username: user.Username},
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Login authenticates against the backend and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	res, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		h.writeAuthError(w, err, creds.Username)
		return
	}

	h.setSessionCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusOK, toSessionResponse(res))
}

// Register creates a backend account and logs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	res, err := h.auth.Register(r.Context(), creds)
	if err != nil {
		h.writeAuthError(w, err, creds.Username)
		return
	}

	h.setSessionCookie(w, res.Token, res.ExpiresAt)
	writeJSON(w, http.StatusCreated, toSessionResponse(res))
}

// Logout ends the session, if any, and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(w, r)
	if err != nil {
		h.logger.Error("failed to resolve session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if session != nil {
		if err := h.auth.Logout(r.Context(), session); err != nil {
			h.logger.Error("failed to end session", "username", session.Username, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Account returns the user's API key for the DEVisible CLI.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	account, err := h.auth.Account(r.Context(), session)
	if err != nil {
		h.writeBackendError(w, err, "failed to load account", "username", session.Username)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		Username: account.Username,
		APIKey:   account.APIKey,
	})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (model.Credentials, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return model.Credentials{}, false
	}
	return model.Credentials{Username: req.Username, Password: req.Password}, true
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error, username string) {
	switch {
	case errors.Is(err, driven.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, driven.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username is already taken")
	default:
		h.logger.Error("authentication failed", "username", username, "error", err)
		writeError(w, http.StatusBadGateway, "authentication failed")
	}
}

func toSessionResponse(res *application.LoginResult) SessionResponse {
	return SessionResponse{
		User:      &UserResponse{Username: res.User.Username},
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
