package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/enums"
)

// Payment records one charge attempt. CardNumber is masked and CVV is always a placeholder.
type Payment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Amount     int                 `gorm:"column:amount;not null"`
	CardHolder string              `gorm:"column:card_holder;not null"`
	CardNumber string              `gorm:"column:card_number;not null"`
	Expiration string              `gorm:"column:expiration;not null"`
	CVV        string              `gorm:"column:cvv;not null"`
	Status     enums.PaymentStatus `gorm:"column:status;not null"`
	Reference  *string             `gorm:"column:reference"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }
