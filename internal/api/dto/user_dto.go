package dto

import (
	"time"

	"github.com/evolution-fly/flight-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Phone           *string `json:"phone,omitempty"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest payload for profile changes.
type UpdateProfileRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
}

// AuthResponse is returned by login and register: the wholesale-issued
// identity plus its bearer token.
type AuthResponse struct {
	Identity  domain.Identity `json:"identity"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}
