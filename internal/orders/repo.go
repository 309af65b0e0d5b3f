package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// AttachCoupon links a reserved coupon to a pending order. A nil couponID
// detaches it.
func (r *repository) AttachCoupon(ctx context.Context, id uuid.UUID, couponID *uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(map[string]any{"coupon_id": couponID, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// SettleOrder records the charge outcome on an order that is still pending or
// processing. A nil couponID clears any reserved coupon. Zero rows means the
// order moved on (for example the sweep failed it).
func (r *repository) SettleOrder(ctx context.Context, id uuid.UUID, status enums.OrderStatus, paymentRef string, couponID *uuid.UUID) (int64, error) {
	updates := map[string]any{
		"status":      status,
		"payment_ref": paymentRef,
		"coupon_id":   couponID,
		"updated_at":  time.Now().UTC(),
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing}).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": enums.OrderStatusCompleted, "updated_at": time.Now().UTC()}).Error
}

// FindPendingBefore returns pending orders created before cutoff, oldest first.
func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	qb := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	err := qb.Find(&orders).Error
	return orders, err
}

func (r *repository) FailIfPending(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(map[string]any{"status": enums.OrderStatusFailed, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
