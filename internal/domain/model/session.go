package model

import "time"

// Session is a dashboard login. BackendCookie carries the cookie header the
// DEVisible backend issued at login and is encrypted at rest.
type Session struct {
	ID            string
	Username      string
	BackendCookie string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
