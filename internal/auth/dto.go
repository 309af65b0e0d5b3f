package auth

import (
	"github.com/angelmondragon/arepera-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the access token and the authenticated profile.
type LoginResponse struct {
	AccessToken string            `json:"accessToken"`
	ExpiresIn   int               `json:"expiresIn"`
	User        *users.ProfileDTO `json:"user"`
}

// RegisterRequest is the public sign-up payload.
type RegisterRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	RepeatPassword string `json:"repeatPassword" validate:"required"`
}

// RegisterResponse returns the pending profile and its welcome coupon.
type RegisterResponse struct {
	User          *users.ProfileDTO `json:"user"`
	WelcomeCoupon string            `json:"welcomeCoupon"`
}
