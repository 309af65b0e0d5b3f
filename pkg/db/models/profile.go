package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/enums"
)

// Profile is a storefront account. New profiles wait for admin approval.
type Profile struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"column:email;type:text;not null;uniqueIndex"`
	FullName     string           `gorm:"column:full_name;not null"`
	PasswordHash *string          `gorm:"column:password_hash"`
	Role         enums.UserRole   `gorm:"column:role;not null;default:'user'"`
	Status       enums.UserStatus `gorm:"column:status;not null;default:'pending'"`
	AvatarURL    *string          `gorm:"column:avatar_url"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }

func (p Profile) IsApproved() bool { return p.Status == enums.UserStatusApproved }

func (p Profile) IsAdmin() bool { return p.Role == enums.UserRoleAdmin }
