package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when no session exists for a token.
var ErrSessionNotFound = errors.New("session not found")

// Repository stores sessions keyed by token.
type Repository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	// DeleteSession removes a session. Deleting a token with no session is
	// not an error.
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsByAccount(ctx context.Context, accountID uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}
