package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user. The role must
// match the stored account role, mirroring the original panel-per-role login.
type LoginRequest struct {
	Matricula   string   `json:"matricula" validate:"required"`
	Password    string   `json:"password" validate:"required"`
	TipoUsuario UserRole `json:"tipoUsuario" validate:"required,oneof=administrador maestro estudiante"`
	IP          string   `json:"-"`
	UserAgent   string   `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	Matricula   string   `json:"matricula"`
	Nombre      string   `json:"nombre"`
	Email       string   `json:"email"`
	TipoUsuario UserRole `json:"tipoUsuario"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UpdateProfileRequest payload for self-service profile edits.
type UpdateProfileRequest struct {
	Nombre string `json:"nombre" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

// PasswordStrengthRequest asks for an advisory strength score.
type PasswordStrengthRequest struct {
	Password string `json:"password" validate:"required"`
}

// Session is the persisted session record: who logged in, when, and until
// when the session is honoured.
type Session struct {
	Matricula   string    `json:"matricula"`
	TipoUsuario UserRole  `json:"tipoUsuario"`
	Timestamp   time.Time `json:"timestamp"`
	Expires     time.Time `json:"expires"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Matricula   string   `json:"matricula"`
	TipoUsuario UserRole `json:"tipoUsuario"`
	Nombre      string   `json:"nombre"`
	jwt.RegisteredClaims
}
