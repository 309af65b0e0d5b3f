package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
)

// Repository defines persistence for orders, their item snapshots and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	AttachCoupon(ctx context.Context, id uuid.UUID, couponID *uuid.UUID) (int64, error)
	SettleOrder(ctx context.Context, id uuid.UUID, status enums.OrderStatus, paymentRef string, couponID *uuid.UUID) (int64, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	FailIfPending(ctx context.Context, id uuid.UUID) (int64, error)
}
