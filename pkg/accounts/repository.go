package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by repository implementations
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrCodeNotFound    = errors.New("verification code not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrDuplicateUser   = errors.New("username already taken")
)

// Repository defines the credential store consumed by the auth service.
// Implementations must make IncrementFailedAttempts atomic so concurrent
// login attempts against the same account cannot lose counter updates.
type Repository interface {
	// Account lookups
	GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccountByUsername(ctx context.Context, username string) (Account, error)

	// Account mutations
	CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error)
	UpdateAccountLogin(ctx context.Context, id uuid.UUID, ip string) error
	LockAccount(ctx context.Context, id uuid.UUID) error
	UnlockAccount(ctx context.Context, id uuid.UUID) error
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, encodedHash string) error

	// Login attempt audit log
	CreateLoginAttempt(ctx context.Context, arg CreateLoginAttemptParams) (LoginAttempt, error)
	CountRecentFailedAttempts(ctx context.Context, email string, window time.Duration) (int, error)

	// Verification codes
	CreateVerificationCode(ctx context.Context, arg CreateVerificationCodeParams) (VerificationCode, error)
	GetValidVerificationCode(ctx context.Context, email, code string, purpose CodePurpose) (VerificationCode, error)
	MarkCodeUsed(ctx context.Context, id uuid.UUID) error
}
