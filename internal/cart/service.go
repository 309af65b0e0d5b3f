package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/internal/coupons"
	"github.com/angelmondragon/arepera-backend/internal/pricing"
	"github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

const (
	cartUniqueConstraint = "ux_carts_user_id"
	maxUpsertAttempts    = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type couponChecker interface {
	Validate(ctx context.Context, code string, userID uuid.UUID) (*coupons.Validation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Service manages the caller's cart.
type Service interface {
	Get(ctx context.Context, caller auth.Caller, couponCode string) (*View, error)
	AddItem(ctx context.Context, caller auth.Caller, input AddItemInput) (*View, error)
	UpdateQuantity(ctx context.Context, caller auth.Caller, itemID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, caller auth.Caller, itemID uuid.UUID) (*View, error)
	Clear(ctx context.Context, caller auth.Caller) error
	ApplyCoupon(ctx context.Context, caller auth.Caller, code string) (*View, error)
	MyCoupons(ctx context.Context, caller auth.Caller) ([]string, error)
}

type service struct {
	tx       txRunner
	repo     *Repository
	products productLoader
	coupons  couponChecker
	pricing  *pricing.Calculator
}

// NewService builds a cart service backed by the provided stack.
func NewService(tx txRunner, repo *Repository, products productLoader, coupons couponChecker, calc *pricing.Calculator) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon checker required")
	}
	if calc == nil {
		calc = pricing.Default()
	}
	return &service{tx: tx, repo: repo, products: products, coupons: coupons, pricing: calc}, nil
}

func requireUser(caller auth.Caller) error {
	if !caller.IsAuthenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func (s *service) Get(ctx context.Context, caller auth.Caller, couponCode string) (*View, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}

	var validation *coupons.Validation
	if code := strings.TrimSpace(couponCode); code != "" {
		v, err := s.coupons.Validate(ctx, code, caller.UserID)
		if err != nil {
			return nil, err
		}
		validation = v
	}
	return s.view(ctx, caller.UserID, validation)
}

func (s *service) view(ctx context.Context, userID uuid.UUID, validation *coupons.Validation) (*View, error) {
	discount := 0
	if validation != nil {
		discount = validation.Discount
	}

	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &View{
				Items:   []ItemView{},
				Summary: s.pricing.Compute(nil, discount),
				Coupon:  validation,
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cartID := cart.ID
	return &View{
		CartID:  &cartID,
		Items:   toItemViews(cart.Items),
		Summary: s.pricing.Compute(Lines(cart.Items), discount),
		Coupon:  validation,
	}, nil
}

func (s *service) AddItem(ctx context.Context, caller auth.Caller, input AddItemInput) (*View, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Available {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailableItems, "product is not available").
			WithDetails(map[string]any{"productId": product.ID})
	}

	for attempt := 1; ; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.upsertItem(ctx, s.repo.WithTx(tx), caller.UserID, product.ID, qty)
		})
		if err == nil {
			break
		}
		retryable := db.IsUniqueViolation(err, ItemUniqueConstraint) || db.IsUniqueViolation(err, cartUniqueConstraint)
		if !retryable || attempt >= maxUpsertAttempts {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
	}
	return s.view(ctx, caller.UserID, nil)
}

// upsertItem merges qty into an existing line or creates one, creating the
// cart lazily. Concurrent inserts surface as unique violations and are retried.
func (s *service) upsertItem(ctx context.Context, repo *Repository, userID, productID uuid.UUID, qty int) error {
	cartID, err := repo.FindCartIDByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		cart := &models.Cart{UserID: userID}
		if err := repo.CreateCart(ctx, cart); err != nil {
			return err
		}
		cartID = cart.ID
	}

	rows, err := repo.IncrementItem(ctx, cartID, productID, qty)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	return repo.CreateItem(ctx, &models.CartItem{CartID: cartID, ProductID: productID, Quantity: qty})
}

func (s *service) UpdateQuantity(ctx context.Context, caller auth.Caller, itemID uuid.UUID, quantity int) (*View, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.ownedItem(ctx, repo, itemID, caller.UserID)
		if err != nil {
			return err
		}
		if err := repo.SetItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, caller.UserID, nil)
}

func (s *service) RemoveItem(ctx context.Context, caller auth.Caller, itemID uuid.UUID) (*View, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.ownedItem(ctx, repo, itemID, caller.UserID)
		if err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, caller.UserID, nil)
}

func (s *service) Clear(ctx context.Context, caller auth.Caller) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if err := s.repo.ClearForUser(ctx, caller.UserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) ApplyCoupon(ctx context.Context, caller auth.Caller, code string) (*View, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	return s.Get(ctx, caller, code)
}

func (s *service) MyCoupons(ctx context.Context, caller auth.Caller) ([]string, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	return s.coupons.ListForUser(ctx, caller.UserID)
}

// ownedItem hides items of other users behind NotFound.
func (s *service) ownedItem(ctx context.Context, repo *Repository, itemID, userID uuid.UUID) (*models.CartItem, error) {
	item, err := repo.FindItemForUser(ctx, itemID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return item, nil
}
