package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
)

type ItemDTO struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   *uuid.UUID `json:"productId,omitempty"`
	ProductName string     `json:"productName"`
	Price       int        `json:"price"`
	Quantity    int        `json:"quantity"`
	LineTotal   int        `json:"lineTotal"`
}

// PaymentDTO is a charge attempt as stored: the card is already masked.
type PaymentDTO struct {
	ID         uuid.UUID           `json:"id"`
	Amount     int                 `json:"amount"`
	CardHolder string              `json:"cardHolder"`
	CardNumber string              `json:"cardNumber"`
	Status     enums.PaymentStatus `json:"status"`
	Reference  *string             `json:"reference,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// OrderDTO is the order summary returned to its owner. Payments is only
// filled on the detail view.
type OrderDTO struct {
	ID         uuid.UUID         `json:"id"`
	Total      int               `json:"total"`
	Status     enums.OrderStatus `json:"status"`
	PaymentRef *string           `json:"paymentRef,omitempty"`
	CouponID   *uuid.UUID        `json:"couponId,omitempty"`
	Items      []ItemDTO         `json:"items"`
	Payments   []PaymentDTO      `json:"payments,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func PaymentsFromModels(rows []models.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, PaymentDTO{
			ID:         p.ID,
			Amount:     p.Amount,
			CardHolder: p.CardHolder,
			CardNumber: p.CardNumber,
			Status:     p.Status,
			Reference:  p.Reference,
			CreatedAt:  p.CreatedAt,
		})
	}
	return out
}

func FromModel(order models.Order) OrderDTO {
	items := make([]ItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal(),
		})
	}
	return OrderDTO{
		ID:         order.ID,
		Total:      order.Total,
		Status:     order.Status,
		PaymentRef: order.PaymentRef,
		CouponID:   order.CouponID,
		Items:      items,
		CreatedAt:  order.CreatedAt,
	}
}
