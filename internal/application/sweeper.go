package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/devisible/internal/domain/port/driven"
)

// SessionSweeper periodically removes expired sessions along with their
// views and any backend client state held for their cookies.
type SessionSweeper struct {
	sessions driven.SessionStore
	backend  driven.BackendClient
	views    *ViewStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionSweeper creates a SessionSweeper running every interval.
func NewSessionSweeper(
	sessions driven.SessionStore,
	backend driven.BackendClient,
	views *ViewStore,
	interval time.Duration,
	logger *slog.Logger,
) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		backend:  backend,
		views:    views,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start runs an immediate sweep, then sweeps on the configured interval.
// Start blocks until the context is canceled.
func (s *SessionSweeper) Start(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("initial session sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("session sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes expired sessions once and returns how many were removed.
func (s *SessionSweeper) Sweep(ctx context.Context) (int, error) {
	swept, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	for _, session := range swept {
		s.backend.ForgetSession(session.BackendCookie)
		s.views.Drop(session.ID)
	}
	if len(swept) > 0 {
		s.logger.Info("expired sessions removed", "count", len(swept))
	}
	return len(swept), nil
}
