package accounts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage.
// It backs the ephemeral server mode and the service tests.
type InMemoryRepository struct {
	mu                sync.RWMutex
	accounts          map[uuid.UUID]Account
	accountsByEmail   map[string]uuid.UUID
	accountsByUser    map[string]uuid.UUID
	loginAttempts     []LoginAttempt
	verificationCodes map[uuid.UUID]VerificationCode
}

// NewInMemoryRepository creates a new in-memory credential store
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts:          make(map[uuid.UUID]Account),
		accountsByEmail:   make(map[string]uuid.UUID),
		accountsByUser:    make(map[string]uuid.UUID),
		verificationCodes: make(map[uuid.UUID]VerificationCode),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetAccountByID gets an account by ID
func (r *InMemoryRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

// GetAccountByEmail gets an account by email
func (r *InMemoryRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.accountsByEmail[normalizeEmail(email)]
	if !exists {
		return Account{}, ErrAccountNotFound
	}
	return r.accounts[id], nil
}

// GetAccountByUsername gets an account by username
func (r *InMemoryRepository) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.accountsByUser[username]
	if !exists {
		return Account{}, ErrAccountNotFound
	}
	return r.accounts[id], nil
}

// CreateAccount creates a new account with a zeroed failure counter
func (r *InMemoryRepository) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(arg.Email)
	if _, exists := r.accountsByEmail[email]; exists {
		return Account{}, ErrDuplicateEmail
	}
	if _, exists := r.accountsByUser[arg.Username]; exists {
		return Account{}, ErrDuplicateUser
	}

	account := Account{
		ID:        uuid.New(),
		Username:  arg.Username,
		Email:     email,
		Password:  arg.Password,
		CreatedAt: time.Now().UTC(),
	}
	r.accounts[account.ID] = account
	r.accountsByEmail[email] = account.ID
	r.accountsByUser[arg.Username] = account.ID
	return account, nil
}

// UpdateAccountLogin records a successful login: last known IP and login time
func (r *InMemoryRepository) UpdateAccountLogin(ctx context.Context, id uuid.UUID, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrAccountNotFound
	}
	now := time.Now().UTC()
	account.LastKnownIP = ip
	account.HasKnownIP = true
	account.LastLoginAt = &now
	r.accounts[id] = account
	return nil
}

// LockAccount marks an account as locked
func (r *InMemoryRepository) LockAccount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrAccountNotFound
	}
	account.IsLocked = true
	r.accounts[id] = account
	return nil
}

// UnlockAccount clears the lock and the failure counter
func (r *InMemoryRepository) UnlockAccount(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrAccountNotFound
	}
	account.IsLocked = false
	account.FailedAttempts = 0
	r.accounts[id] = account
	return nil
}

// IncrementFailedAttempts bumps the failure counter and returns the new count
func (r *InMemoryRepository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return 0, ErrAccountNotFound
	}
	account.FailedAttempts++
	r.accounts[id] = account
	return account.FailedAttempts, nil
}

// ResetFailedAttempts zeroes the failure counter
func (r *InMemoryRepository) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrAccountNotFound
	}
	account.FailedAttempts = 0
	r.accounts[id] = account
	return nil
}

// UpdatePassword replaces the stored encoded hash
func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id uuid.UUID, encodedHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrAccountNotFound
	}
	account.Password = encodedHash
	r.accounts[id] = account
	return nil
}

// CreateLoginAttempt appends an immutable audit row
func (r *InMemoryRepository) CreateLoginAttempt(ctx context.Context, arg CreateLoginAttemptParams) (LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt := LoginAttempt{
		ID:          uuid.New(),
		Email:       normalizeEmail(arg.Email),
		IPAddress:   arg.IPAddress,
		Success:     arg.Success,
		AttemptedAt: time.Now().UTC(),
	}
	r.loginAttempts = append(r.loginAttempts, attempt)
	return attempt, nil
}

// CountRecentFailedAttempts counts failed attempts for an email within the
// trailing window
func (r *InMemoryRepository) CountRecentFailedAttempts(ctx context.Context, email string, window time.Duration) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = normalizeEmail(email)
	cutoff := time.Now().UTC().Add(-window)
	count := 0
	for _, attempt := range r.loginAttempts {
		if attempt.Email == email && !attempt.Success && attempt.AttemptedAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// CreateVerificationCode persists a new code
func (r *InMemoryRepository) CreateVerificationCode(ctx context.Context, arg CreateVerificationCodeParams) (VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := VerificationCode{
		ID:        uuid.New(),
		Email:     normalizeEmail(arg.Email),
		Code:      arg.Code,
		Purpose:   arg.Purpose,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}
	r.verificationCodes[code.ID] = code
	return code, nil
}

// GetValidVerificationCode finds the most recent unused, unexpired code
// matching email, code and purpose. Multiple outstanding codes per
// email/purpose may coexist.
func (r *InMemoryRepository) GetValidVerificationCode(ctx context.Context, email, code string, purpose CodePurpose) (VerificationCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = normalizeEmail(email)
	now := time.Now().UTC()

	var matches []VerificationCode
	for _, vc := range r.verificationCodes {
		if vc.Email == email && vc.Code == code && vc.Purpose == purpose &&
			!vc.Used && !now.After(vc.ExpiresAt) {
			matches = append(matches, vc)
		}
	}
	if len(matches) == 0 {
		return VerificationCode{}, ErrCodeNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches[0], nil
}

// MarkCodeUsed flips the single-use flag. An already-used code reports
// ErrCodeNotFound, so concurrent consumers cannot both succeed.
func (r *InMemoryRepository) MarkCodeUsed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vc, exists := r.verificationCodes[id]
	if !exists || vc.Used {
		return ErrCodeNotFound
	}
	vc.Used = true
	r.verificationCodes[id] = vc
	return nil
}
