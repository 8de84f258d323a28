package accounts

import (
	"time"

	"github.com/google/uuid"
)

// CodePurpose scopes a verification code to the flow that issued it.
type CodePurpose string

const (
	// PurposeNewLocation is issued when a login arrives from an IP that
	// differs from the account's last known IP.
	PurposeNewLocation CodePurpose = "new_location"
	// PurposePasswordReset is issued by the password reset flow.
	PurposePasswordReset CodePurpose = "password_reset"
)

// Account represents a dashboard user account.
// The Password field holds the encoded hash ("<hexHash>.<hexSalt>"), never
// the plaintext.
type Account struct {
	ID             uuid.UUID
	Username       string
	Email          string
	Password       string
	LastKnownIP    string
	HasKnownIP     bool
	IsLocked       bool
	FailedAttempts int
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// LoginAttempt is an immutable audit record written for every login attempt,
// including attempts against emails that have no account.
type LoginAttempt struct {
	ID          uuid.UUID
	Email       string
	IPAddress   string
	Success     bool
	AttemptedAt time.Time
}

// VerificationCode is a short single-use code delivered out-of-band.
// A code is valid only while Used is false and ExpiresAt has not passed.
type VerificationCode struct {
	ID        uuid.UUID
	Email     string
	Code      string
	Purpose   CodePurpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// CreateAccountParams holds the fields needed to create an account.
type CreateAccountParams struct {
	Username string
	Email    string
	Password string
}

// CreateVerificationCodeParams holds the fields needed to persist a code.
type CreateVerificationCodeParams struct {
	Email     string
	Code      string
	Purpose   CodePurpose
	ExpiresAt time.Time
}

// CreateLoginAttemptParams holds the fields for one audit row.
type CreateLoginAttemptParams struct {
	Email     string
	IPAddress string
	Success   bool
}
