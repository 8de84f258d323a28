package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
)

func TestCreateAndValidate(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()
	accountID := uuid.New()

	session, err := svc.Create(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, session.Token, tokenBytes*2)
	assert.Equal(t, accountID, session.AccountID)
	assert.WithinDuration(t, time.Now().UTC().Add(DefaultTTL), session.ExpiresAt, time.Minute)

	got, err := svc.Validate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Token, got.Token)
	assert.Equal(t, accountID, got.AccountID)
}

func TestValidate_UnknownAndEmptyTokens(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	_, err := svc.Validate(ctx, "")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeUnauthorized))

	_, err = svc.Validate(ctx, "not-a-token")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeUnauthorized))
}

func TestValidate_ExpiredSessionIsRemoved(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, WithTTL(-time.Minute))
	ctx := context.Background()

	session, err := svc.Create(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.Validate(ctx, session.Token)
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeSessionExpired))

	// Removed from the store, so the second look is a plain miss
	_, err = repo.GetSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDestroy_Idempotent(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	session, err := svc.Create(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, svc.Destroy(ctx, session.Token))
	_, err = svc.Validate(ctx, session.Token)
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeUnauthorized))

	// Destroying again, or destroying garbage, still succeeds
	assert.NoError(t, svc.Destroy(ctx, session.Token))
	assert.NoError(t, svc.Destroy(ctx, "never-existed"))
	assert.NoError(t, svc.Destroy(ctx, ""))
}

func TestDestroyAllForAccount(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()
	accountID := uuid.New()

	first, err := svc.Create(ctx, accountID)
	require.NoError(t, err)
	second, err := svc.Create(ctx, accountID)
	require.NoError(t, err)
	other, err := svc.Create(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, svc.DestroyAllForAccount(ctx, accountID))

	_, err = svc.Validate(ctx, first.Token)
	assert.Error(t, err)
	_, err = svc.Validate(ctx, second.Token)
	assert.Error(t, err)
	_, err = svc.Validate(ctx, other.Token)
	assert.NoError(t, err)
}

func TestPurgeExpired(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	expired := NewService(repo, WithTTL(-time.Hour))
	live := NewService(repo)

	_, err := expired.Create(ctx, uuid.New())
	require.NoError(t, err)
	keep, err := live.Create(ctx, uuid.New())
	require.NoError(t, err)

	removed, err := live.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = live.Validate(ctx, keep.Token)
	assert.NoError(t, err)
}

func TestRequireSession(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()
	accountID := uuid.New()

	session, err := svc.Create(ctx, accountID)
	require.NoError(t, err)

	var gotAccountID uuid.UUID
	handler := RequireSession(svc, DefaultCookieConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccountID = AccountIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Without a cookie
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// With the session cookie
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: session.Token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, accountID, gotAccountID)
}

func TestSessionCookieRoundTrip(t *testing.T) {
	session := Session{Token: "abc123", ExpiresAt: time.Now().Add(time.Hour)}

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, session, DefaultCookieConfig())

	res := rec.Result()
	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, "abc123", TokenFromRequest(req))

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, DefaultCookieConfig())
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Negative(t, cleared[0].MaxAge)
}
