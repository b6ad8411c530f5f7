package model

import "time"

// User represents a user in the database.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SendRegisterCodeRequest starts a registration by emailing a code.
type SendRegisterCodeRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// VerifyRegisterCodeRequest completes a registration.
type VerifyRegisterCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,number,len=6"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendResetCodeRequest starts a password reset.
type SendResetCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest replaces a password using an emailed code.
type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required,number,len=6"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Envelope is the JSON body of every /auth response.
type Envelope struct {
	OK                bool          `json:"ok"`
	Error             string        `json:"error,omitempty"`
	Message           string        `json:"message,omitempty"`
	CooldownSeconds   int           `json:"cooldownSeconds,omitempty"`
	RetryAfterSeconds int           `json:"retryAfterSeconds,omitempty"`
	Redirect          string        `json:"redirect,omitempty"`
	Token             string        `json:"token,omitempty"`
	User              *UserResponse `json:"user,omitempty"`
}
