package api

import "time"

// RegisterRequest represents the request to create an account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a credential login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyIPRequest carries the step-up code for a login from a new location
type VerifyIPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResetPasswordRequest starts the password reset flow
type ResetPasswordRequest struct {
	Email string `json:"email"`
}

// ConfirmResetPasswordRequest completes the password reset flow
type ConfirmResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// UserResponse is the public view of an account. The password hash and the
// lockout counters are never serialized.
type UserResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LoginResponse is returned by POST /login
type LoginResponse struct {
	RequiresVerification bool          `json:"requiresVerification"`
	Message              string        `json:"message,omitempty"`
	User                 *UserResponse `json:"user,omitempty"`
}

// MessageResponse is a generic success message
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}
