package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
)

// ProfileDTO is the transport shape that omits sensitive credentials.
type ProfileDTO struct {
	ID        uuid.UUID        `json:"id"`
	Email     string           `json:"email"`
	FullName  string           `json:"fullName"`
	Role      enums.UserRole   `json:"role"`
	Status    enums.UserStatus `json:"status"`
	AvatarURL *string          `json:"avatarUrl,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// CreateProfileDTO holds the data required by the repo to persist a new profile.
type CreateProfileDTO struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         enums.UserRole
	Status       enums.UserStatus
}

func FromModel(p *models.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}
	return &ProfileDTO{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role,
		Status:    p.Status,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (c CreateProfileDTO) ToModel() *models.Profile {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	status := c.Status
	if status == "" {
		status = enums.UserStatusPending
	}
	profile := &models.Profile{
		Email:    NormalizeEmail(c.Email),
		FullName: strings.TrimSpace(c.FullName),
		Role:     role,
		Status:   status,
	}
	if c.PasswordHash != "" {
		hash := c.PasswordHash
		profile.PasswordHash = &hash
	}
	return profile
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ChangeRoleInput is the admin payload for role changes.
type ChangeRoleInput struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}
