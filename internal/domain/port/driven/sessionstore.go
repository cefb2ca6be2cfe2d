package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/devisible/internal/domain/model"
)

// ErrSessionNotFound indicates the requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore defines the driven port for dashboard session persistence.
// Implementations encrypt BackendCookie at rest; values cross this interface
// as plaintext.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) error

	// Get returns the session with the given ID, or nil, nil if it does not exist.
	// Expired sessions are returned as-is; callers check Session.Expired.
	Get(ctx context.Context, id string) (*model.Session, error)

	// Delete removes a session. Returns ErrSessionNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session that expired at or before now and
	// returns the removed sessions ordered by ID.
	DeleteExpired(ctx context.Context, now time.Time) ([]model.Session, error)
}
