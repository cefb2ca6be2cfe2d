package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/devisible/internal/domain/model"
)

// Sentinel errors returned by BackendClient implementations.
var (
	// ErrUnauthenticated indicates the backend rejected or does not recognize the session.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials indicates a login attempt with a bad username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken indicates a signup for a username that already exists.
	ErrUsernameTaken = errors.New("username already taken")
)

// AuthResult is the outcome of a successful login or signup: the user and the
// cookie header value to replay on subsequent backend calls.
type AuthResult struct {
	User   model.User
	Cookie string
}

// BackendClient defines the driven port for the DEVisible backend API.
// Every call except Login and Register replays the backend session cookie.
type BackendClient interface {
	// CurrentUser returns the user bound to cookie, or nil if the backend
	// session holds no user with a non-empty username.
	CurrentUser(ctx context.Context, cookie string) (*model.User, error)
	Login(ctx context.Context, creds model.Credentials) (*AuthResult, error)
	Register(ctx context.Context, creds model.Credentials) (*AuthResult, error)
	Logout(ctx context.Context, cookie string) error
	Account(ctx context.Context, cookie string) (*model.Account, error)
	ListRepos(ctx context.Context, cookie string) ([]model.Repository, error)
	Dependencies(ctx context.Context, cookie string) (*model.DependencyData, error)

	// DeleteRepo asks the backend to hard-delete a repository and returns the
	// backend's HTTP status code. Only 204 confirms the delete.
	DeleteRepo(ctx context.Context, cookie string, repoID int64) (int, error)

	// ForgetSession releases any client-side state held for cookie, such as
	// cached responses. Called once the dashboard session using it has ended.
	ForgetSession(cookie string)
}
