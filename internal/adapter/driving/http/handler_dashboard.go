package httphandler

import (
	"net/http"
	"strconv"
)

// Dashboard loads the session's repositories fresh from the backend and
// returns them with their out-of-spec status.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	view, err := h.dashboard.Load(r.Context(), session)
	if err != nil {
		h.writeBackendError(w, err, "failed to load dashboard", "username", session.Username)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(view, ""))
}

// SearchDashboard filters the loaded repositories by the q query parameter.
func (h *Handler) SearchDashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")

	view, err := h.dashboard.Search(r.Context(), session, query)
	if err != nil {
		h.writeBackendError(w, err, "failed to load dashboard", "username", session.Username)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(view, query))
}

// DeleteRepo hard-deletes a repository through the backend. The backend's
// status is passed through when it is anything other than 204.
func (h *Handler) DeleteRepo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repository id")
		return
	}

	status, err := h.dashboard.DeleteRepo(r.Context(), session, id)
	if err != nil {
		h.writeBackendError(w, err, "failed to delete repository", "repo_id", id)
		return
	}

	if status != http.StatusNoContent {
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		writeError(w, status, "repository was not deleted")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Dependencies lists every dependency across the user's repositories with
// the versions in use.
func (h *Handler) Dependencies(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	usage, err := h.dashboard.DependencyOverview(r.Context(), session)
	if err != nil {
		h.writeBackendError(w, err, "failed to load dependencies", "username", session.Username)
		return
	}

	resp := make([]DependencyUsageResponse, 0, len(usage))
	for _, u := range usage {
		resp = append(resp, toDependencyUsageResponse(u))
	}

	writeJSON(w, http.StatusOK, resp)
}
