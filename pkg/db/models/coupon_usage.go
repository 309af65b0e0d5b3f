package models

import (
	"time"

	"github.com/google/uuid"
)

// CouponUsage binds a coupon to a profile. Used flips once redeemed.
type CouponUsage struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID  uuid.UUID  `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:ux_coupon_usages_coupon_user"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_coupon_usages_coupon_user"`
	Used      bool       `gorm:"column:used;not null;default:false"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (CouponUsage) TableName() string { return "coupon_usages" }
