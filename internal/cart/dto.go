package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/internal/coupons"
	"github.com/angelmondragon/arepera-backend/internal/pricing"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
)

// ItemView is one priced cart line.
type ItemView struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	ImageURL  *string   `json:"imageUrl,omitempty"`
	Price     int       `json:"price"`
	Quantity  int       `json:"quantity"`
	LineTotal int       `json:"lineTotal"`
	Available bool      `json:"available"`
}

// View is the cart as shown to its owner.
type View struct {
	CartID  *uuid.UUID          `json:"cartId,omitempty"`
	Items   []ItemView          `json:"items"`
	Summary pricing.Summary     `json:"summary"`
	Coupon  *coupons.Validation `json:"coupon,omitempty"`
}

// AddItemInput is the add-to-cart payload.
type AddItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1"`
}

// UpdateQuantityInput changes the quantity of one line.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// ApplyCouponInput carries the code typed by the user.
type ApplyCouponInput struct {
	Code string `json:"code" validate:"required"`
}

// Lines converts cart items into pricing lines. Missing products price at zero.
func Lines(items []models.CartItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		price := 0
		if item.Product != nil {
			price = item.Product.Price
		}
		lines = append(lines, pricing.Line{Quantity: item.Quantity, UnitPrice: price})
	}
	return lines
}

func toItemViews(items []models.CartItem) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		view := ItemView{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity}
		if item.Product != nil {
			view.Name = item.Product.Name
			view.ImageURL = item.Product.ImageURL
			view.Price = item.Product.Price
			view.Available = item.Product.Available
		}
		view.LineTotal = view.Price * view.Quantity
		views = append(views, view)
	}
	return views
}
