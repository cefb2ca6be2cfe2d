package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/devisible/internal/domain/model"
	"github.com/ericfisherdev/devisible/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port interface.
// Backend cookies are encrypted before write and decrypted after read.
type SessionRepo struct {
	db     *DB
	sealer *sealer
}

// NewSessionRepo creates a SessionRepo. key must be 32 bytes (AES-256).
func NewSessionRepo(db *DB, key []byte) (*SessionRepo, error) {
	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	return &SessionRepo{db: db, sealer: s}, nil
}

// Create inserts a new session.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	const query = `INSERT INTO sessions (id, username, backend_cookie, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`

	encrypted, err := r.sealer.seal(s.BackendCookie)
	if err != nil {
		return fmt.Errorf("encrypt session %s: %w", s.ID, err)
	}

	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.Writer.ExecContext(ctx, query, s.ID, s.Username, encrypted, createdAt.Unix(), s.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}

	return nil
}

// Get retrieves a session by ID. Returns nil, nil if it does not exist.
func (r *SessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	const query = `SELECT id, username, backend_cookie, created_at, expires_at FROM sessions WHERE id = ?`

	var (
		s         model.Session
		encrypted string
		createdAt int64
		expiresAt int64
	)

	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Username, &encrypted, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	s.BackendCookie, err = r.sealer.open(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt session %s: %w", id, err)
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()

	return &s, nil
}

// Delete removes a session by ID.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete session %s: %w", id, driven.ErrSessionNotFound)
	}

	return nil
}

// DeleteExpired removes every session whose expiry is at or before now and
// returns the removed sessions with their cookies decrypted. A cookie that
// fails to decrypt is returned empty so the row is still swept.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) ([]model.Session, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sweep: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := now.Unix()

	const query = `SELECT id, username, backend_cookie, created_at, expires_at FROM sessions WHERE expires_at <= ? ORDER BY id`

	rows, err := tx.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}

	sessions := []model.Session{}
	for rows.Next() {
		var (
			s         model.Session
			encrypted string
			createdAt int64
			expiresAt int64
		)
		if err := rows.Scan(&s.ID, &s.Username, &encrypted, &createdAt, &expiresAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan expired session: %w", err)
		}
		if cookie, err := r.sealer.open(encrypted); err == nil {
			s.BackendCookie = cookie
		}
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate expired sessions: %w", err)
	}
	_ = rows.Close()

	if len(sessions) == 0 {
		return sessions, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, cutoff); err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sweep: %w", err)
	}

	return sessions, nil
}
