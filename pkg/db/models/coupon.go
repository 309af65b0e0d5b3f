package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a percentage discount code. Lookups go through CodeHash.
type Coupon struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string     `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	CodeHash    string     `gorm:"column:code_hash;not null;uniqueIndex:ux_coupons_code_hash"`
	Discount    int        `gorm:"column:discount;not null"`
	Description *string    `gorm:"column:description"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
	MaxUses     *int       `gorm:"column:max_uses"`
	UsedCount   int        `gorm:"column:used_count;not null;default:0"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Coupon) TableName() string { return "coupons" }

// IsExpired reports whether the coupon expired strictly before now.
func (c Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// IsExhausted reports whether a usage limit is set and already reached.
func (c Coupon) IsExhausted() bool {
	return c.MaxUses != nil && c.UsedCount >= *c.MaxUses
}
