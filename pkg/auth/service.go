package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cyberguard/cyberguard/pkg/accounts"
	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
	"github.com/cyberguard/cyberguard/pkg/notification"
)

// Defaults for the login flow thresholds.
const (
	DefaultMaxFailedAttempts = 5
	DefaultAttemptWindow     = 15 * time.Minute
	DefaultLoginCodeExpiry   = 15 * time.Minute
	DefaultResetCodeExpiry   = 30 * time.Minute
)

// Service orchestrates login, lockout, step-up verification, registration
// and password reset against the credential store.
//
// Two overlapping brute-force defenses are maintained independently: the
// account's cumulative failed-attempt counter (locks the account at the
// threshold, cleared only by a successful login or a password reset) and a
// rolling attempt-window rate guard over the login attempt log, keyed by
// email whether or not an account exists.
type Service struct {
	repo                accounts.Repository
	hasher              Hasher
	notificationManager *notification.NotificationManager

	maxFailedAttempts int
	attemptWindow     time.Duration
	loginCodeExpiry   time.Duration
	resetCodeExpiry   time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithHasher overrides the password hasher
func WithHasher(hasher Hasher) Option {
	return func(s *Service) {
		s.hasher = hasher
	}
}

// WithNotificationManager sets the manager used to deliver codes out-of-band
func WithNotificationManager(nm *notification.NotificationManager) Option {
	return func(s *Service) {
		s.notificationManager = nm
	}
}

// WithMaxFailedAttempts sets the lockout threshold
func WithMaxFailedAttempts(max int) Option {
	return func(s *Service) {
		s.maxFailedAttempts = max
	}
}

// WithAttemptWindow sets the rate-guard window over the attempt log
func WithAttemptWindow(window time.Duration) Option {
	return func(s *Service) {
		s.attemptWindow = window
	}
}

// WithLoginCodeExpiry sets the lifetime of new-location codes
func WithLoginCodeExpiry(expiry time.Duration) Option {
	return func(s *Service) {
		s.loginCodeExpiry = expiry
	}
}

// WithResetCodeExpiry sets the lifetime of password-reset codes
func WithResetCodeExpiry(expiry time.Duration) Option {
	return func(s *Service) {
		s.resetCodeExpiry = expiry
	}
}

// NewService creates an authentication service over the given credential store
func NewService(repo accounts.Repository, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		hasher:            NewScryptHasher(),
		maxFailedAttempts: DefaultMaxFailedAttempts,
		attemptWindow:     DefaultAttemptWindow,
		loginCodeExpiry:   DefaultLoginCodeExpiry,
		resetCodeExpiry:   DefaultResetCodeExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is the outcome of a successful credential check. When
// RequiresVerification is set, no session may be established until the
// emailed code is confirmed via VerifyNewLocation.
type LoginResult struct {
	RequiresVerification bool
	Account              accounts.Account
}

// Register creates a new account. Both uniqueness checks run before the
// insert; the insert itself maps constraint violations too so a concurrent
// duplicate cannot slip through between check and create.
func (s *Service) Register(ctx context.Context, username, email, password string) (accounts.Account, error) {
	if _, err := s.repo.GetAccountByEmail(ctx, email); err == nil {
		return accounts.Account{}, cgerr.New(cgerr.ErrCodeDuplicateEmail, "email is already registered")
	} else if !errors.Is(err, accounts.ErrAccountNotFound) {
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to check email")
	}

	if _, err := s.repo.GetAccountByUsername(ctx, username); err == nil {
		return accounts.Account{}, cgerr.New(cgerr.ErrCodeDuplicateUsername, "username is already taken")
	} else if !errors.Is(err, accounts.ErrAccountNotFound) {
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to check username")
	}

	encodedHash, err := s.hasher.Hash(password)
	if err != nil {
		return accounts.Account{}, cgerr.InternalWrap(err, "failed to hash password")
	}

	account, err := s.repo.CreateAccount(ctx, accounts.CreateAccountParams{
		Username: username,
		Email:    email,
		Password: encodedHash,
	})
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrDuplicateEmail):
			return accounts.Account{}, cgerr.New(cgerr.ErrCodeDuplicateEmail, "email is already registered")
		case errors.Is(err, accounts.ErrDuplicateUser):
			return accounts.Account{}, cgerr.New(cgerr.ErrCodeDuplicateUsername, "username is already taken")
		}
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to create account")
	}

	slog.Info("Account registered", "username", account.Username)
	return account, nil
}

// Login validates credentials from a source IP and walks the login state
// machine. The caller establishes a session only after Login returns with
// RequiresVerification unset; by then the account mutation (last known IP,
// login time) is already durably applied.
func (s *Service) Login(ctx context.Context, email, password, sourceIP string) (LoginResult, error) {
	// Windowed rate guard over the attempt log. Runs before any account
	// lookup so attempts against non-existent emails are throttled too.
	recentFailures, err := s.repo.CountRecentFailedAttempts(ctx, email, s.attemptWindow)
	if err != nil {
		return LoginResult{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to check recent attempts")
	}
	if recentFailures >= s.maxFailedAttempts {
		return LoginResult{}, cgerr.New(cgerr.ErrCodeTooManyAttempts, "too many failed attempts, try again later")
	}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			// Logged for auditing, rejected with the same shape as a wrong
			// password so the response never reveals account existence.
			if err := s.recordAttempt(ctx, email, sourceIP, false); err != nil {
				return LoginResult{}, err
			}
			return LoginResult{}, cgerr.New(cgerr.ErrCodeInvalidCredentials, "invalid email or password")
		}
		return LoginResult{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up account")
	}

	if account.IsLocked {
		return LoginResult{}, cgerr.New(cgerr.ErrCodeAccountLocked, "account is locked, contact an administrator")
	}

	valid, err := s.hasher.Verify(password, account.Password)
	if err != nil {
		return LoginResult{}, cgerr.InternalWrap(err, "failed to verify password")
	}
	if !valid {
		failures, err := s.repo.IncrementFailedAttempts(ctx, account.ID)
		if err != nil {
			return LoginResult{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to record failure")
		}
		if err := s.recordAttempt(ctx, email, sourceIP, false); err != nil {
			return LoginResult{}, err
		}
		if failures >= s.maxFailedAttempts {
			if err := s.repo.LockAccount(ctx, account.ID); err != nil {
				return LoginResult{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to lock account")
			}
			slog.Warn("Account locked after repeated failures", "username", account.Username, "failures", failures)
			return LoginResult{}, cgerr.New(cgerr.ErrCodeAccountLocked, "account locked after repeated failed attempts")
		}
		return LoginResult{}, cgerr.New(cgerr.ErrCodeInvalidCredentials, "invalid email or password")
	}

	if err := s.repo.ResetFailedAttempts(ctx, account.ID); err != nil {
		return LoginResult{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to reset failure counter")
	}
	if err := s.recordAttempt(ctx, email, sourceIP, true); err != nil {
		return LoginResult{}, err
	}

	// Step-up check: a known account logging in from a different IP must
	// confirm an emailed code before any session exists.
	if account.HasKnownIP && account.LastKnownIP != sourceIP {
		if err := s.issueCode(ctx, account.Email, accounts.PurposeNewLocation, s.loginCodeExpiry, notification.NewLocationCodeNotice); err != nil {
			return LoginResult{}, err
		}
		slog.Info("Login from new location, verification required", "username", account.Username, "ip", sourceIP)
		return LoginResult{RequiresVerification: true, Account: account}, nil
	}

	if err := s.repo.UpdateAccountLogin(ctx, account.ID, sourceIP); err != nil {
		return LoginResult{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to update account login")
	}
	return LoginResult{Account: account}, nil
}

// VerifyNewLocation consumes a step-up code and completes the deferred
// login. The code is single-use: a second confirmation with the same code
// fails regardless of timing.
func (s *Service) VerifyNewLocation(ctx context.Context, email, code, sourceIP string) (accounts.Account, error) {
	vc, err := s.repo.GetValidVerificationCode(ctx, email, code, accounts.PurposeNewLocation)
	if err != nil {
		if errors.Is(err, accounts.ErrCodeNotFound) {
			return accounts.Account{}, cgerr.New(cgerr.ErrCodeInvalidCode, "verification code is invalid or expired")
		}
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up code")
	}

	if err := s.repo.MarkCodeUsed(ctx, vc.ID); err != nil {
		if errors.Is(err, accounts.ErrCodeNotFound) {
			// Lost the consumption race to a concurrent verify
			return accounts.Account{}, cgerr.New(cgerr.ErrCodeInvalidCode, "verification code is invalid or expired")
		}
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to consume code")
	}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return accounts.Account{}, cgerr.New(cgerr.ErrCodeAccountNotFound, "account not found")
		}
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up account")
	}

	if err := s.repo.UpdateAccountLogin(ctx, account.ID, sourceIP); err != nil {
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to update account login")
	}

	slog.Info("New location verified", "username", account.Username, "ip", sourceIP)
	return account, nil
}

// RequestPasswordReset issues a reset code if the email belongs to an
// account. The caller must answer with the same generic response either
// way; the only signal is an email in the account holder's inbox.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return nil
		}
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up account")
	}

	return s.issueCode(ctx, account.Email, accounts.PurposePasswordReset, s.resetCodeExpiry, notification.PasswordResetCodeNotice)
}

// ConfirmPasswordReset consumes a reset code, replaces the password and
// unlocks the account. A completed reset always clears the lockout flag and
// the failure counter.
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	vc, err := s.repo.GetValidVerificationCode(ctx, email, code, accounts.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, accounts.ErrCodeNotFound) {
			return cgerr.New(cgerr.ErrCodeInvalidCode, "verification code is invalid or expired")
		}
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up code")
	}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return cgerr.New(cgerr.ErrCodeAccountNotFound, "account not found")
		}
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up account")
	}

	encodedHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return cgerr.InternalWrap(err, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, account.ID, encodedHash); err != nil {
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to update password")
	}
	if err := s.repo.UnlockAccount(ctx, account.ID); err != nil {
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to unlock account")
	}
	if err := s.repo.MarkCodeUsed(ctx, vc.ID); err != nil {
		// Password is already replaced; surface the failure so the code
		// cannot silently stay live.
		slog.Error("Failed to mark reset code used", "err", err)
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to consume code")
	}

	slog.Info("Password reset completed", "username", account.Username)
	return nil
}

// GetAccountByEmail looks up an account by email address.
func (s *Service) GetAccountByEmail(ctx context.Context, email string) (accounts.Account, error) {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return accounts.Account{}, cgerr.New(cgerr.ErrCodeAccountNotFound, "account not found")
		}
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up account")
	}
	return account, nil
}

// GetAccount returns the account behind an established session.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	account, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return accounts.Account{}, cgerr.New(cgerr.ErrCodeAccountNotFound, "account not found")
		}
		return accounts.Account{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to look up account")
	}
	return account, nil
}

func (s *Service) recordAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := s.repo.CreateLoginAttempt(ctx, accounts.CreateLoginAttemptParams{
		Email:     email,
		IPAddress: ip,
		Success:   success,
	})
	if err != nil {
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to record login attempt")
	}
	return nil
}

func (s *Service) issueCode(ctx context.Context, email string, purpose accounts.CodePurpose, expiry time.Duration, notice notification.NoticeType) error {
	code, err := GenerateCode()
	if err != nil {
		return cgerr.InternalWrap(err, "failed to generate code")
	}

	_, err = s.repo.CreateVerificationCode(ctx, accounts.CreateVerificationCodeParams{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().UTC().Add(expiry),
	})
	if err != nil {
		return cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to store code")
	}

	if s.notificationManager == nil {
		slog.Warn("No notification manager configured, code not delivered", "purpose", purpose)
		return nil
	}

	// Delivery is out-of-band; a relay hiccup must not fail the flow.
	err = s.notificationManager.Send(notice, notification.NotificationData{
		To: email,
		Data: map[string]string{
			"Code":      code,
			"ExpiresIn": fmt.Sprintf("%d", int(expiry.Minutes())),
		},
	})
	if err != nil {
		slog.Error("Failed to deliver verification code", "purpose", purpose, "err", err)
	}
	return nil
}
