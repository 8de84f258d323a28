package sessions

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
)

type contextKey string

const sessionContextKey contextKey = "session"

// FromContext returns the session established by RequireSession.
func FromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// AccountIDFromContext returns the authenticated account id, or uuid.Nil
// when the request carries no session.
func AccountIDFromContext(ctx context.Context) uuid.UUID {
	session, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil
	}
	return session.AccountID
}

// RequireSession rejects requests without a valid session cookie and puts
// the session on the request context for downstream handlers.
func RequireSession(svc *Service, cfg CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := svc.Validate(r.Context(), TokenFromRequest(r))
			if err != nil {
				if cgerr.IsCode(err, cgerr.ErrCodeSessionExpired) {
					ClearSessionCookie(w, cfg)
				}
				render.Status(r, cgerr.MapErrorCodeToHTTPStatus(cgerr.GetCode(err)))
				render.JSON(w, r, map[string]string{
					"code":    string(cgerr.GetCode(err)),
					"message": "authentication required",
				})
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
