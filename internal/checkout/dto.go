package checkout

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/internal/card"
	"github.com/angelmondragon/arepera-backend/internal/payments"
)

// PlaceholderProductName labels snapshot lines whose product no longer exists.
const PlaceholderProductName = "Producto no disponible"

// Input starts a checkout. TotalAmount is in minor units.
type Input struct {
	TotalAmount int       `json:"totalAmount" validate:"required,gt=0"`
	CartID      uuid.UUID `json:"cartId" validate:"required"`
	Card        card.Data `json:"card"`
	CouponCode  string    `json:"couponCode,omitempty"`
}

// Result is returned to the client after the charge settles.
type Result struct {
	PaymentRef   string          `json:"paymentRef"`
	ClientSecret string          `json:"clientSecret"`
	OrderID      uuid.UUID       `json:"orderId"`
	Status       payments.Status `json:"status"`
}
