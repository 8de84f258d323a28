package sessions

import (
	"net/http"
	"time"
)

// CookieName is the session cookie issued to browsers.
const CookieName = "cyberguard_session"

// CookieConfig controls the attributes of issued session cookies.
type CookieConfig struct {
	// Secure should be true whenever the dashboard is served over HTTPS.
	Secure bool
	Path   string
}

// DefaultCookieConfig returns cookie settings suitable for local development.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{Secure: false, Path: "/"}
}

// SetSessionCookie writes the session token to the response.
func SetSessionCookie(w http.ResponseWriter, session Session, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    session.Token,
		Path:     cfg.Path,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     cfg.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest extracts the session token from the request cookie, or
// returns the empty string when no cookie is present.
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
