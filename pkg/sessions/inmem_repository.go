package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository keeps sessions in process memory. Suitable for tests
// and single-node development setups.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewInMemoryRepository creates an empty in-memory session store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]Session),
	}
}

func (r *InMemoryRepository) CreateSession(ctx context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Token] = session
	return nil
}

func (r *InMemoryRepository) GetSession(ctx context.Context, token string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (r *InMemoryRepository) DeleteSession(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

func (r *InMemoryRepository) DeleteSessionsByAccount(ctx context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, session := range r.sessions {
		if session.AccountID == accountID {
			delete(r.sessions, token)
		}
	}
	return nil
}

func (r *InMemoryRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for token, session := range r.sessions {
		if session.ExpiresAt.Before(before) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}
