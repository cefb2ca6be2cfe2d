package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/devisible/internal/application"
	"github.com/ericfisherdev/devisible/internal/domain/model"
	"github.com/ericfisherdev/devisible/internal/domain/port/driven"
)

const (
	sessionCookieName = "devisible_session"
	loginPath         = "/login"
)

// Handler is the HTTP driving adapter that serves the dashboard JSON API.
type Handler struct {
	auth          *application.AuthService
	dashboard     *application.DashboardService
	secureCookies bool
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. secureCookies
// marks the session and CSRF cookies Secure and should be set when the
// service is reached over HTTPS.
func NewHandler(
	auth *application.AuthService,
	dashboard *application.DashboardService,
	secureCookies bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		auth:          auth,
		dashboard:     dashboard,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with CSRF, logging and recovery middleware. A nil limiter disables rate
// limiting on the login and signup routes.
func NewServeMux(h *Handler, limiter *RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	limited := func(fn http.HandlerFunc) http.Handler {
		if limiter == nil {
			return fn
		}
		return limiter.Middleware(fn)
	}

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/session", h.GetSession)
	mux.Handle("POST /api/v1/session", limited(h.Login))
	mux.HandleFunc("DELETE /api/v1/session", h.Logout)
	mux.Handle("POST /api/v1/users", limited(h.Register))
	mux.HandleFunc("GET /api/v1/account", h.Account)

	mux.HandleFunc("GET /api/v1/dashboard", h.Dashboard)
	mux.HandleFunc("GET /api/v1/dashboard/search", h.SearchDashboard)
	mux.HandleFunc("DELETE /api/v1/repos/{id}", h.DeleteRepo)
	mux.HandleFunc("GET /api/v1/dependencies", h.Dependencies)

	wrapped := csrfMiddleware(h.secureCookies, logger, mux)
	// Recovery innermost so panics are caught before logging.
	wrapped = recoveryMiddleware(logger, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// session resolves the request's session cookie. It returns nil when the
// request is not authenticated, clearing a stale cookie if one was sent.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*model.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	session, err := h.auth.Resolve(r.Context(), cookie.Value)
	if errors.Is(err, driven.ErrUnauthenticated) {
		h.clearSessionCookie(w)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// requireSession resolves the session or writes the error response. The
// bool is false when the handler should stop.
func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	session, err := h.session(w, r)
	if err != nil {
		h.logger.Error("failed to resolve session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if session == nil {
		writeUnauthorized(w)
		return nil, false
	}
	return session, true
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
}

// writeBackendError maps a backend failure to a response. A backend that no
// longer recognizes the session sends the user back to login.
func (h *Handler) writeBackendError(w http.ResponseWriter, err error, msg string, args ...any) {
	if errors.Is(err, driven.ErrUnauthenticated) {
		h.clearSessionCookie(w)
		writeUnauthorized(w)
		return
	}

	h.logger.Error(msg, append(args, "error", err)...)
	writeError(w, http.StatusBadGateway, msg)
}
