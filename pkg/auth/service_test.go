package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberguard/cyberguard/pkg/accounts"
	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
	"github.com/cyberguard/cyberguard/pkg/notification"
)

func newTestService(t *testing.T) (*Service, *accounts.InMemoryRepository, *notification.MockNotifier) {
	t.Helper()

	repo := accounts.NewInMemoryRepository()
	mock := &notification.MockNotifier{}
	nm, err := notification.NewNotificationManager(
		notification.WithNotifier(notification.EmailSystem, mock),
		notification.WithDefaultTemplates(),
	)
	require.NoError(t, err)

	svc := NewService(repo, WithNotificationManager(nm))
	return svc, repo, mock
}

func registerAccount(t *testing.T, svc *Service) accounts.Account {
	t.Helper()
	account, err := svc.Register(context.Background(), "analyst", "analyst@example.com", "hunter2!")
	require.NoError(t, err)
	return account
}

func TestRegister(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	account := registerAccount(t, svc)
	assert.Equal(t, "analyst", account.Username)
	assert.Equal(t, "analyst@example.com", account.Email)
	assert.NotEqual(t, "hunter2!", account.Password, "password must be stored hashed")
	assert.False(t, account.IsLocked)
	assert.False(t, account.HasKnownIP)

	stored, err := repo.GetAccountByEmail(ctx, "analyst@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, stored.ID)
}

func TestRegister_Duplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	registerAccount(t, svc)

	_, err := svc.Register(ctx, "other", "analyst@example.com", "pass")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeDuplicateEmail))

	_, err = svc.Register(ctx, "analyst", "other@example.com", "pass")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeDuplicateUsername))
}

func TestLogin_FirstLoginSetsKnownIP(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	registerAccount(t, svc)

	result, err := svc.Login(ctx, "analyst@example.com", "hunter2!", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.RequiresVerification)

	stored, err := repo.GetAccountByEmail(ctx, "analyst@example.com")
	require.NoError(t, err)
	assert.True(t, stored.HasKnownIP)
	assert.Equal(t, "10.0.0.1", stored.LastKnownIP)
	require.NotNil(t, stored.LastLoginAt)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	account := registerAccount(t, svc)

	_, err := svc.Login(ctx, "analyst@example.com", "wrong", "10.0.0.1")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCredentials))

	stored, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedAttempts)
	assert.False(t, stored.IsLocked)
}

func TestLogin_UnknownEmailMatchesWrongPasswordShape(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	registerAccount(t, svc)

	_, unknownErr := svc.Login(ctx, "nobody@example.com", "whatever", "10.0.0.1")
	_, wrongErr := svc.Login(ctx, "analyst@example.com", "wrong", "10.0.0.1")

	assert.True(t, cgerr.IsCode(unknownErr, cgerr.ErrCodeInvalidCredentials))
	assert.True(t, cgerr.IsCode(wrongErr, cgerr.ErrCodeInvalidCredentials))
	assert.Equal(t, wrongErr.Error(), unknownErr.Error())
}

func TestLogin_LockoutAfterThreshold(t *testing.T) {
	svc, repo, _ := newTestService(t)
	// A wide window would trip the rate guard before the account counter;
	// narrow it so the counter path is exercised in isolation.
	svc.attemptWindow = time.Nanosecond
	ctx := context.Background()
	account := registerAccount(t, svc)

	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, "analyst@example.com", "wrong", "10.0.0.1")
		assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCredentials), "attempt %d should not lock yet", i+1)
	}

	// Fifth failure crosses the threshold
	_, err := svc.Login(ctx, "analyst@example.com", "wrong", "10.0.0.1")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeAccountLocked))

	stored, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLocked)
	assert.Equal(t, 5, stored.FailedAttempts)

	// The correct password no longer helps
	_, err = svc.Login(ctx, "analyst@example.com", "hunter2!", "10.0.0.1")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeAccountLocked))
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	svc, repo, _ := newTestService(t)
	svc.attemptWindow = time.Nanosecond
	ctx := context.Background()
	account := registerAccount(t, svc)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "analyst@example.com", "wrong", "10.0.0.1")
		require.Error(t, err)
	}

	_, err := svc.Login(ctx, "analyst@example.com", "hunter2!", "10.0.0.1")
	require.NoError(t, err)

	stored, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedAttempts)

	// The counter restarts, so three more failures still do not lock
	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "analyst@example.com", "wrong", "10.0.0.1")
		assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCredentials))
	}
}

func TestLogin_RateGuardCoversUnknownEmails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "nobody@example.com", "guess", "10.0.0.1")
		assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCredentials))
	}

	// Sixth attempt inside the window is throttled even though no account
	// exists for the email.
	_, err := svc.Login(ctx, "nobody@example.com", "guess", "10.0.0.1")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeTooManyAttempts))
}

func TestLogin_NewLocationRequiresVerification(t *testing.T) {
	svc, repo, mock := newTestService(t)
	ctx := context.Background()
	registerAccount(t, svc)

	_, err := svc.Login(ctx, "analyst@example.com", "hunter2!", "10.0.0.1")
	require.NoError(t, err)

	result, err := svc.Login(ctx, "analyst@example.com", "hunter2!", "192.168.1.50")
	require.NoError(t, err)
	assert.True(t, result.RequiresVerification)

	// The known IP must not move until the code is confirmed
	stored, err := repo.GetAccountByEmail(ctx, "analyst@example.com")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", stored.LastKnownIP)

	code := mock.LastCode()
	require.Len(t, code, CodeLength)

	account, err := svc.VerifyNewLocation(ctx, "analyst@example.com", code, "192.168.1.50")
	require.NoError(t, err)
	assert.Equal(t, "analyst", account.Username)

	stored, err = repo.GetAccountByEmail(ctx, "analyst@example.com")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", stored.LastKnownIP)

	// Once trusted, the same IP logs in without step-up
	result, err = svc.Login(ctx, "analyst@example.com", "hunter2!", "192.168.1.50")
	require.NoError(t, err)
	assert.False(t, result.RequiresVerification)
}

func TestVerifyNewLocation_CodeIsSingleUse(t *testing.T) {
	svc, _, mock := newTestService(t)
	ctx := context.Background()
	registerAccount(t, svc)

	_, err := svc.Login(ctx, "analyst@example.com", "hunter2!", "10.0.0.1")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "analyst@example.com", "hunter2!", "192.168.1.50")
	require.NoError(t, err)

	code := mock.LastCode()
	_, err = svc.VerifyNewLocation(ctx, "analyst@example.com", code, "192.168.1.50")
	require.NoError(t, err)

	_, err = svc.VerifyNewLocation(ctx, "analyst@example.com", code, "192.168.1.50")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCode))
}

func TestVerifyNewLocation_ExpiredAndWrongCodes(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	registerAccount(t, svc)

	_, err := svc.VerifyNewLocation(ctx, "analyst@example.com", "ZZZZZZ", "10.0.0.1")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCode))

	// Expired code is rejected even though it was never used
	_, err = repo.CreateVerificationCode(ctx, accounts.CreateVerificationCodeParams{
		Email:     "analyst@example.com",
		Code:      "ABC123",
		Purpose:   accounts.PurposeNewLocation,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = svc.VerifyNewLocation(ctx, "analyst@example.com", "ABC123", "10.0.0.1")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCode))
}

func TestVerifyNewLocation_PurposeIsScoped(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	registerAccount(t, svc)

	// A reset code cannot stand in for a step-up code
	_, err := repo.CreateVerificationCode(ctx, accounts.CreateVerificationCodeParams{
		Email:     "analyst@example.com",
		Code:      "RESET1",
		Purpose:   accounts.PurposePasswordReset,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.VerifyNewLocation(ctx, "analyst@example.com", "RESET1", "10.0.0.1")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCode))
}

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	svc, _, mock := newTestService(t)
	ctx := context.Background()

	err := svc.RequestPasswordReset(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Empty(t, mock.Sent)
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	svc, _, mock := newTestService(t)
	ctx := context.Background()
	registerAccount(t, svc)

	require.NoError(t, svc.RequestPasswordReset(ctx, "analyst@example.com"))
	code := mock.LastCode()
	require.Len(t, code, CodeLength)

	err := svc.ConfirmPasswordReset(ctx, "analyst@example.com", code, "n3w-pass!")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "analyst@example.com", "hunter2!", "10.0.0.1")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCredentials))

	result, err := svc.Login(ctx, "analyst@example.com", "n3w-pass!", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.RequiresVerification)

	// The code is consumed
	err = svc.ConfirmPasswordReset(ctx, "analyst@example.com", code, "another")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidCode))
}

func TestPasswordReset_UnlocksAccount(t *testing.T) {
	svc, repo, mock := newTestService(t)
	svc.attemptWindow = time.Nanosecond
	ctx := context.Background()
	account := registerAccount(t, svc)

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "analyst@example.com", "wrong", "10.0.0.1")
		require.Error(t, err)
	}
	stored, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, stored.IsLocked)

	require.NoError(t, svc.RequestPasswordReset(ctx, "analyst@example.com"))
	require.NoError(t, svc.ConfirmPasswordReset(ctx, "analyst@example.com", mock.LastCode(), "fresh-pass"))

	stored, err = repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsLocked)
	assert.Equal(t, 0, stored.FailedAttempts)

	result, err := svc.Login(ctx, "analyst@example.com", "fresh-pass", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.RequiresVerification)
}

func TestGetAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	account := registerAccount(t, svc)

	got, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	_, err = svc.GetAccount(ctx, uuid.New())
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeAccountNotFound))
}
