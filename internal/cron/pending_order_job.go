package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/internal/orders"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/outbox"
)

const (
	defaultPendingTimeout = 30 * time.Minute
	pendingBatchSize      = 200
)

// PendingOrderJobParams configure the stale pending order sweep.
type PendingOrderJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Orders  orders.Repository
	Outbox  outboxEmitter
	Coupons couponReleaser
	Timeout time.Duration
}

// NewPendingOrderJob builds the job that fails orders left pending after a
// gateway error or a crash between the two checkout transactions. Coupon uses
// reserved by an expired order are given back when Coupons is set.
func NewPendingOrderJob(params PendingOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultPendingTimeout
	}
	return &pendingOrderJob{
		logg:    params.Logger,
		db:      params.DB,
		orders:  params.Orders,
		outbox:  params.Outbox,
		coupons: params.Coupons,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

type pendingOrderJob struct {
	logg    *logger.Logger
	db      txRunner
	orders  orders.Repository
	outbox  outboxEmitter
	coupons couponReleaser
	timeout time.Duration
	now     func() time.Time
}

func (j *pendingOrderJob) Name() string { return "pending-order-sweep" }

func (j *pendingOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.timeout)
	stale, err := j.orders.FindPendingBefore(ctx, cutoff, pendingBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range stale {
		ok, err := j.expireOrder(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(stale),
		"expired": expired,
	})
	j.logg.Info(logCtx, "pending order sweep complete")
	return errs
}

// expireOrder reports false when the order left pending before the update ran.
func (j *pendingOrderJob) expireOrder(ctx context.Context, order models.Order) (bool, error) {
	expired := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		rows, err := repo.FailIfPending(ctx, order.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		expired = true
		if err := j.releaseCoupon(ctx, tx, repo, order.ID); err != nil {
			return err
		}
		now := j.now().UTC()
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: outbox.OrderExpiredEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				ExpiredAt: now,
			},
		})
	})
	return expired, err
}

func (j *pendingOrderJob) releaseCoupon(ctx context.Context, tx *gorm.DB, repo orders.Repository, orderID uuid.UUID) error {
	if j.coupons == nil {
		return nil
	}
	current, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("reload order: %w", err)
	}
	if current.CouponID == nil {
		return nil
	}
	return j.coupons.Release(ctx, tx, *current.CouponID, current.UserID)
}
