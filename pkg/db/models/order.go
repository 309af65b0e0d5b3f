package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/enums"
)

// Order is created pending before the charge and settled afterwards.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Total      int               `gorm:"column:total;not null"`
	Status     enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	PaymentRef *string           `gorm:"column:payment_ref"`
	CouponID   *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	Items      []OrderItem       `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
