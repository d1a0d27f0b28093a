package model

import "time"

// DefaultSessionTTL is how long a saved token stays usable.
const DefaultSessionTTL = 12 * time.Hour

type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
