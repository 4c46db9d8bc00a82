package dto

import "time"

// AdminLoginRequest carries admin credentials.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// StudentLoginRequest carries student credentials.
type StudentLoginRequest struct {
	StudentNumber string `json:"student_number" validate:"required,min=3,max=32"`
	Password      string `json:"password" validate:"required,min=6"`
}

// AuthUser describes the authenticated principal returned on login.
type AuthUser struct {
	ID            uint   `json:"id"`
	Role          string `json:"role"`
	Email         string `json:"email,omitempty"`
	StudentNumber string `json:"student_number,omitempty"`
	Position      string `json:"position,omitempty"`
	Name          string `json:"name"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      AuthUser  `json:"user"`
}

// LogoutResponse is returned after revoking tokens.
type LogoutResponse struct {
	RevokedAt time.Time `json:"revoked_at"`
	AllTokens bool      `json:"all_tokens"`
}
