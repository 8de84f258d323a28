package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/cyberguard/cyberguard/pkg/accounts"
	"github.com/cyberguard/cyberguard/pkg/auth"
	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
	"github.com/cyberguard/cyberguard/pkg/sessions"
)

// AuthHandler exposes the authentication flows over HTTP
type AuthHandler struct {
	authService    *auth.Service
	sessionService *sessions.Service
	cookieConfig   sessions.CookieConfig
}

// NewAuthHandler creates a new authentication API handler
func NewAuthHandler(authService *auth.Service, sessionService *sessions.Service, cookieConfig sessions.CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		cookieConfig:   cookieConfig,
	}
}

// Handler mounts the authentication routes on a fresh router.
func Handler(h *AuthHandler) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes attaches the authentication routes. GET /user requires a
// session; everything else is reachable unauthenticated.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/verify-ip", h.VerifyIP)
	r.Post("/logout", h.Logout)
	r.Post("/reset-password", h.ResetPassword)
	r.Post("/confirm-reset-password", h.ConfirmResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireSession(h.sessionService, h.cookieConfig))
		r.Get("/user", h.GetUser)
	})
}

// Register handles POST /register. A successful registration signs the new
// account in immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "username, email and password are required"))
		return
	}

	account, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		renderError(w, r, err)
		return
	}

	session, err := h.sessionService.Create(r.Context(), account.ID)
	if err != nil {
		slog.Error("Failed to create session after registration", "err", err)
		renderError(w, r, err)
		return
	}
	sessions.SetSessionCookie(w, session, h.cookieConfig)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toUserResponse(account))
}

// Login handles POST /login. A login from a new location returns without a
// session; the client must follow up on /verify-ip.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "email and password are required"))
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password, getClientIP(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	if result.RequiresVerification {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, LoginResponse{
			RequiresVerification: true,
			Message:              "login from a new location, check your email for a verification code",
		})
		return
	}

	session, err := h.sessionService.Create(r.Context(), result.Account.ID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	sessions.SetSessionCookie(w, session, h.cookieConfig)

	user := toUserResponse(result.Account)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{User: &user})
}

// VerifyIP handles POST /verify-ip and finishes a deferred login.
func (h *AuthHandler) VerifyIP(w http.ResponseWriter, r *http.Request) {
	var req VerifyIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	if req.Email == "" || req.Code == "" {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "email and code are required"))
		return
	}

	account, err := h.authService.VerifyNewLocation(r.Context(), req.Email, req.Code, getClientIP(r))
	if err != nil {
		renderError(w, r, err)
		return
	}

	session, err := h.sessionService.Create(r.Context(), account.ID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	sessions.SetSessionCookie(w, session, h.cookieConfig)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toUserResponse(account))
}

// Logout handles POST /logout. It always succeeds, with or without a live
// session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionService.Destroy(r.Context(), sessions.TokenFromRequest(r)); err != nil {
		slog.Warn("Failed to destroy session on logout", "err", err)
	}
	sessions.ClearSessionCookie(w, h.cookieConfig)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "logged out"})
}

// GetUser handles GET /user for the authenticated account.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	accountID := sessions.AccountIDFromContext(r.Context())

	account, err := h.authService.GetAccount(r.Context(), accountID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toUserResponse(account))
}

// ResetPassword handles POST /reset-password. The response is identical for
// known and unknown emails.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	if req.Email == "" {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "email is required"))
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "if the email is registered, a reset code has been sent"})
}

// ConfirmResetPassword handles POST /confirm-reset-password. A completed
// reset signs the account out everywhere.
func (h *AuthHandler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ConfirmResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "email, code and newPassword are required"))
		return
	}

	if err := h.authService.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		renderError(w, r, err)
		return
	}

	account, err := h.authService.GetAccountByEmail(r.Context(), req.Email)
	if err == nil {
		if err := h.sessionService.DestroyAllForAccount(r.Context(), account.ID); err != nil {
			slog.Warn("Failed to revoke sessions after password reset", "err", err)
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "password has been reset"})
}

func toUserResponse(account accounts.Account) UserResponse {
	var user UserResponse
	if err := copier.Copy(&user, &account); err != nil {
		slog.Error("Failed to map account to response", "err", err)
	}
	user.ID = account.ID.String()
	return user
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := cgerr.GetCode(err)
	status := cgerr.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "code", code, "err", err)
	}

	message := "internal error"
	var appErr *cgerr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: string(code), Error: message})
}

func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
