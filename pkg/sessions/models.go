package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Session is an opaque server-side session. The token is the only thing the
// client ever holds; all session state lives in the store.
type Session struct {
	Token     string
	AccountID uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session lifetime has passed at the given time.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
