package accounts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithInitScripts(filepath.Join("../../migrations", "cyberguard_db.sql")),
		postgres.WithDatabase("cyberguard_db"),
		postgres.WithUsername("cyberguard"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed tests in short mode")
	}

	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	account, err := repo.CreateAccount(ctx, CreateAccountParams{
		Username: "analyst",
		Email:    "analyst@example.com",
		Password: "deadbeef.cafebabe",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, account.ID)
	assert.False(t, account.HasKnownIP)
	assert.False(t, account.IsLocked)
	assert.Equal(t, 0, account.FailedAttempts)

	t.Run("LookupByEmailAndUsername", func(t *testing.T) {
		byEmail, err := repo.GetAccountByEmail(ctx, "analyst@example.com")
		require.NoError(t, err)
		assert.Equal(t, account.ID, byEmail.ID)

		byUsername, err := repo.GetAccountByUsername(ctx, "analyst")
		require.NoError(t, err)
		assert.Equal(t, account.ID, byUsername.ID)

		byID, err := repo.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "analyst@example.com", byID.Email)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		_, err := repo.GetAccountByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrAccountNotFound)

		_, err = repo.GetAccountByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := repo.CreateAccount(ctx, CreateAccountParams{
			Username: "analyst2",
			Email:    "analyst@example.com",
			Password: "deadbeef.cafebabe",
		})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, err := repo.CreateAccount(ctx, CreateAccountParams{
			Username: "analyst",
			Email:    "other@example.com",
			Password: "deadbeef.cafebabe",
		})
		assert.ErrorIs(t, err, ErrDuplicateUser)
	})

	t.Run("UpdateAccountLogin", func(t *testing.T) {
		err := repo.UpdateAccountLogin(ctx, account.ID, "198.51.100.7")
		require.NoError(t, err)

		got, err := repo.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, got.HasKnownIP)
		assert.Equal(t, "198.51.100.7", got.LastKnownIP)
		require.NotNil(t, got.LastLoginAt)
	})

	t.Run("FailedAttemptCounterAndLock", func(t *testing.T) {
		for want := 1; want <= 3; want++ {
			count, err := repo.IncrementFailedAttempts(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, want, count)
		}

		require.NoError(t, repo.LockAccount(ctx, account.ID))
		got, err := repo.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, got.IsLocked)

		require.NoError(t, repo.UnlockAccount(ctx, account.ID))
		require.NoError(t, repo.ResetFailedAttempts(ctx, account.ID))
		got, err = repo.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.False(t, got.IsLocked)
		assert.Equal(t, 0, got.FailedAttempts)
	})

	t.Run("UpdatePassword", func(t *testing.T) {
		err := repo.UpdatePassword(ctx, account.ID, "feedface.0badf00d")
		require.NoError(t, err)

		got, err := repo.GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "feedface.0badf00d", got.Password)
	})

	t.Run("LoginAttemptWindow", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			_, err := repo.CreateLoginAttempt(ctx, CreateLoginAttemptParams{
				Email:     "ghost@example.com",
				IPAddress: "203.0.113.4",
				Success:   false,
			})
			require.NoError(t, err)
		}
		_, err := repo.CreateLoginAttempt(ctx, CreateLoginAttemptParams{
			Email:     "ghost@example.com",
			IPAddress: "203.0.113.4",
			Success:   true,
		})
		require.NoError(t, err)

		count, err := repo.CountRecentFailedAttempts(ctx, "ghost@example.com", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 4, count)

		count, err = repo.CountRecentFailedAttempts(ctx, "GHOST@example.com", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 4, count, "email matching is case insensitive")

		count, err = repo.CountRecentFailedAttempts(ctx, "ghost@example.com", time.Nanosecond)
		require.NoError(t, err)
		assert.Zero(t, count, "attempts outside the window do not count")
	})

	t.Run("VerificationCodeLifecycle", func(t *testing.T) {
		code, err := repo.CreateVerificationCode(ctx, CreateVerificationCodeParams{
			Email:     "analyst@example.com",
			Code:      "A1B2C3",
			Purpose:   PurposeNewLocation,
			ExpiresAt: time.Now().Add(15 * time.Minute),
		})
		require.NoError(t, err)

		got, err := repo.GetValidVerificationCode(ctx, "analyst@example.com", "A1B2C3", PurposeNewLocation)
		require.NoError(t, err)
		assert.Equal(t, code.ID, got.ID)

		// Wrong purpose does not match
		_, err = repo.GetValidVerificationCode(ctx, "analyst@example.com", "A1B2C3", PurposePasswordReset)
		assert.ErrorIs(t, err, ErrCodeNotFound)

		require.NoError(t, repo.MarkCodeUsed(ctx, code.ID))

		_, err = repo.GetValidVerificationCode(ctx, "analyst@example.com", "A1B2C3", PurposeNewLocation)
		assert.ErrorIs(t, err, ErrCodeNotFound)

		// Second consumption of the same code fails
		err = repo.MarkCodeUsed(ctx, code.ID)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("ExpiredCodeRejected", func(t *testing.T) {
		_, err := repo.CreateVerificationCode(ctx, CreateVerificationCodeParams{
			Email:     "analyst@example.com",
			Code:      "ZZ9ZZ9",
			Purpose:   PurposePasswordReset,
			ExpiresAt: time.Now().Add(-time.Minute),
		})
		require.NoError(t, err)

		_, err = repo.GetValidVerificationCode(ctx, "analyst@example.com", "ZZ9ZZ9", PurposePasswordReset)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})
}
