package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
)

// DefaultTTL is the session lifetime.
const DefaultTTL = 24 * time.Hour

const tokenBytes = 32

// Service issues and validates opaque sessions.
type Service struct {
	repo Repository
	ttl  time.Duration
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithTTL overrides the session lifetime
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// NewService creates a session service over the given store
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo: repo,
		ttl:  DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a new session for an account. The token carries no claims;
// it is only a random key into the store.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID) (Session, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Session{}, cgerr.InternalWrap(err, "failed to generate session token")
	}

	now := time.Now().UTC()
	session := Session{
		Token:     hex.EncodeToString(buf),
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return Session{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to store session")
	}
	return session, nil
}

// Validate resolves a token to a live session. An expired session is removed
// from the store on sight.
func (s *Service) Validate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, cgerr.New(cgerr.ErrCodeUnauthorized, "no session")
	}

	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Session{}, cgerr.New(cgerr.ErrCodeUnauthorized, "no session")
		}
		return Session{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up session")
	}

	if session.Expired(time.Now().UTC()) {
		if err := s.repo.DeleteSession(ctx, token); err != nil {
			slog.Warn("Failed to delete expired session", "err", err)
		}
		return Session{}, cgerr.New(cgerr.ErrCodeSessionExpired, "session expired")
	}
	return session, nil
}

// Destroy removes a session. Destroying an unknown or already destroyed
// token succeeds, so logout is idempotent.
func (s *Service) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to delete session")
	}
	return nil
}

// DestroyAllForAccount removes every session belonging to an account. Used
// when a password reset should sign out all devices.
func (s *Service) DestroyAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := s.repo.DeleteSessionsByAccount(ctx, accountID); err != nil {
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to delete account sessions")
	}
	return nil
}

// PurgeExpired removes sessions that expired before now. Intended to run on
// a timer from the server main.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		return 0, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to purge sessions")
	}
	if removed > 0 {
		slog.Info("Purged expired sessions", "count", removed)
	}
	return removed, nil
}
