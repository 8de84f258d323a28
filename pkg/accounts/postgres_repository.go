package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgreSQL credential store
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, username, email, password, last_known_ip, is_locked, failed_attempts, last_login_at, created_at`

func scanAccount(row pgx.Row) (Account, error) {
	var account Account
	var lastKnownIP *string
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.Password,
		&lastKnownIP,
		&account.IsLocked,
		&account.FailedAttempts,
		&account.LastLoginAt,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	if lastKnownIP != nil {
		account.LastKnownIP = *lastKnownIP
		account.HasKnownIP = true
	}
	return account, nil
}

// GetAccountByID gets an account by ID
func (r *PostgresRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetAccountByEmail gets an account by email
func (r *PostgresRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, normalizeEmail(email))
	return scanAccount(row)
}

// GetAccountByUsername gets an account by username
func (r *PostgresRepository) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// CreateAccount creates a new account. The unique constraints on email and
// username are the last line of defense against duplicate registration races.
func (r *PostgresRepository) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO accounts (id, username, email, password, is_locked, failed_attempts, created_at)
		VALUES ($1, $2, $3, $4, false, 0, $5)
		RETURNING `+accountColumns,
		uuid.New(), arg.Username, normalizeEmail(arg.Email), arg.Password, time.Now().UTC(),
	)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return Account{}, ErrDuplicateEmail
			}
			return Account{}, ErrDuplicateUser
		}
		return Account{}, err
	}
	return account, nil
}

// UpdateAccountLogin records the source IP and login time of a successful login
func (r *PostgresRepository) UpdateAccountLogin(ctx context.Context, id uuid.UUID, ip string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET last_known_ip = $2, last_login_at = $3 WHERE id = $1`,
		id, ip, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// LockAccount marks an account as locked
func (r *PostgresRepository) LockAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET is_locked = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UnlockAccount clears the lock and the failure counter
func (r *PostgresRepository) UnlockAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET is_locked = false, failed_attempts = 0 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// IncrementFailedAttempts bumps the counter atomically and returns the new
// count, so concurrent failures cannot lose updates.
func (r *PostgresRepository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		UPDATE accounts SET failed_attempts = failed_attempts + 1
		WHERE id = $1
		RETURNING failed_attempts`, id,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return count, nil
}

// ResetFailedAttempts zeroes the failure counter
func (r *PostgresRepository) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET failed_attempts = 0 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdatePassword replaces the stored encoded hash
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, encodedHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET password = $2 WHERE id = $1`, id, encodedHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreateLoginAttempt appends an immutable audit row
func (r *PostgresRepository) CreateLoginAttempt(ctx context.Context, arg CreateLoginAttemptParams) (LoginAttempt, error) {
	attempt := LoginAttempt{
		ID:          uuid.New(),
		Email:       normalizeEmail(arg.Email),
		IPAddress:   arg.IPAddress,
		Success:     arg.Success,
		AttemptedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, success, attempted_at)
		VALUES ($1, $2, $3, $4, $5)`,
		attempt.ID, attempt.Email, attempt.IPAddress, attempt.Success, attempt.AttemptedAt,
	)
	if err != nil {
		return LoginAttempt{}, err
	}
	return attempt, nil
}

// CountRecentFailedAttempts counts failed attempts for an email within the
// trailing window
func (r *PostgresRepository) CountRecentFailedAttempts(ctx context.Context, email string, window time.Duration) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM login_attempts
		WHERE email = $1 AND success = false AND attempted_at > $2`,
		normalizeEmail(email), time.Now().UTC().Add(-window),
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CreateVerificationCode persists a new code
func (r *PostgresRepository) CreateVerificationCode(ctx context.Context, arg CreateVerificationCodeParams) (VerificationCode, error) {
	vc := VerificationCode{
		ID:        uuid.New(),
		Email:     normalizeEmail(arg.Email),
		Code:      arg.Code,
		Purpose:   arg.Purpose,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO verification_codes (id, email, code, purpose, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)`,
		vc.ID, vc.Email, vc.Code, string(vc.Purpose), vc.ExpiresAt, vc.CreatedAt,
	)
	if err != nil {
		return VerificationCode{}, err
	}
	return vc, nil
}

// GetValidVerificationCode finds the most recent unused, unexpired code
// matching email, code and purpose
func (r *PostgresRepository) GetValidVerificationCode(ctx context.Context, email, code string, purpose CodePurpose) (VerificationCode, error) {
	var vc VerificationCode
	var purposeStr string
	err := r.db.QueryRow(ctx, `
		SELECT id, email, code, purpose, expires_at, used, created_at
		FROM verification_codes
		WHERE email = $1 AND code = $2 AND purpose = $3 AND used = false AND expires_at >= $4
		ORDER BY created_at DESC
		LIMIT 1`,
		normalizeEmail(email), code, string(purpose), time.Now().UTC(),
	).Scan(&vc.ID, &vc.Email, &vc.Code, &purposeStr, &vc.ExpiresAt, &vc.Used, &vc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VerificationCode{}, ErrCodeNotFound
		}
		return VerificationCode{}, err
	}
	vc.Purpose = CodePurpose(purposeStr)
	return vc, nil
}

// MarkCodeUsed flips the single-use flag. The used = false guard makes the
// consumption race-safe: two concurrent verifies cannot both succeed.
func (r *PostgresRepository) MarkCodeUsed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE verification_codes SET used = true WHERE id = $1 AND used = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeNotFound
	}
	return nil
}
