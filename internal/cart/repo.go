package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
)

// ItemUniqueConstraint guards one row per (cart, product).
const ItemUniqueConstraint = "ux_cart_items_cart_product"

// Repository persists carts and their items.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUserID loads the user's cart with items and products, oldest line first.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC").Order("cart_items.id ASC")
		}).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByID loads a cart with items and products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC").Order("cart_items.id ASC")
		}).
		Preload("Items.Product").
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) CreateCart(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *Repository) FindCartIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Select("id").Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return uuid.Nil, err
	}
	return cart.ID, nil
}

// FindItemForUser loads an item only when it belongs to the user's cart.
func (r *Repository) FindItemForUser(ctx context.Context, itemID, userID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// IncrementItem adds qty to an existing line. Zero rows means no such line.
func (r *Repository) IncrementItem(ctx context.Context, cartID, productID uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) SetItemQuantity(ctx context.Context, itemID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()}).Error
}

func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.CartItem{}).Error
}

// ClearForUser removes every item of the user's cart. The cart row stays.
func (r *Repository) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	sub := r.db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
	return r.db.WithContext(ctx).Where("cart_id IN (?)", sub).Delete(&models.CartItem{}).Error
}
