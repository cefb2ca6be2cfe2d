package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/devisible/internal/domain/model"
	"github.com/ericfisherdev/devisible/internal/domain/port/driven"
)

// LoginResult is returned by a successful login or signup.
type LoginResult struct {
	User      model.User
	Token     string
	ExpiresAt time.Time
}

// AuthService manages dashboard sessions on top of backend authentication.
// A session stores the backend's cookie; the browser only ever sees a signed
// token naming the session.
type AuthService struct {
	backend  driven.BackendClient
	sessions driven.SessionStore
	views    *ViewStore
	tokens   *TokenIssuer
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthService creates an AuthService with the required dependencies.
func NewAuthService(
	backend driven.BackendClient,
	sessions driven.SessionStore,
	views *ViewStore,
	tokens *TokenIssuer,
	ttl time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		backend:  backend,
		sessions: sessions,
		views:    views,
		tokens:   tokens,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Login authenticates against the backend and opens a session.
func (s *AuthService) Login(ctx context.Context, creds model.Credentials) (*LoginResult, error) {
	creds, err := normalizeCredentials(creds)
	if err != nil {
		return nil, err
	}

	res, err := s.backend.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, res)
}

// Register creates a backend account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, creds model.Credentials) (*LoginResult, error) {
	creds, err := normalizeCredentials(creds)
	if err != nil {
		return nil, err
	}

	res, err := s.backend.Register(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, res)
}

func normalizeCredentials(creds model.Credentials) (model.Credentials, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return creds, driven.ErrInvalidCredentials
	}
	return creds, nil
}

func (s *AuthService) startSession(ctx context.Context, res *driven.AuthResult) (*LoginResult, error) {
	now := s.now().UTC().Truncate(time.Second)

	session := model.Session{
		ID:            uuid.NewString(),
		Username:      res.User.Username,
		BackendCookie: res.Cookie,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	token, err := s.tokens.Issue(session)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session started", "username", session.Username, "expires_at", session.ExpiresAt)

	return &LoginResult{
		User:      res.User,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Resolve maps a browser session token to its stored session. Any invalid,
// unknown or expired token yields driven.ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, driven.ErrUnauthenticated
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrUnauthenticated, err)
	}

	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, driven.ErrUnauthenticated
	}

	if session.Expired(s.now()) {
		s.endSession(ctx, session)
		return nil, driven.ErrUnauthenticated
	}

	return session, nil
}

// CurrentUser asks the backend who the session belongs to. It returns nil
// when the backend no longer recognizes the session.
func (s *AuthService) CurrentUser(ctx context.Context, session *model.Session) (*model.User, error) {
	user, err := s.backend.CurrentUser(ctx, session.BackendCookie)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.endSession(ctx, session)
	}
	return user, nil
}

// Account returns the account page data for the session's user.
func (s *AuthService) Account(ctx context.Context, session *model.Session) (*model.Account, error) {
	return s.backend.Account(ctx, session.BackendCookie)
}

// Logout ends the backend session and removes the local one. Backend
// failures are logged and do not prevent local cleanup.
func (s *AuthService) Logout(ctx context.Context, session *model.Session) error {
	if err := s.backend.Logout(ctx, session.BackendCookie); err != nil {
		s.logger.Warn("backend logout failed", "username", session.Username, "error", err)
	}

	s.backend.ForgetSession(session.BackendCookie)
	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, driven.ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	s.views.Drop(session.ID)

	s.logger.Info("session ended", "username", session.Username)
	return nil
}

// endSession removes a session that is no longer usable. Failures are logged;
// the sweeper removes anything left behind.
func (s *AuthService) endSession(ctx context.Context, session *model.Session) {
	s.backend.ForgetSession(session.BackendCookie)
	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, driven.ErrSessionNotFound) {
		s.logger.Warn("failed to delete stale session", "error", err)
	}
	s.views.Drop(session.ID)
}
