package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/internal/coupons"
	"github.com/angelmondragon/arepera-backend/internal/orders"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/db/dbtest"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/outbox"
)

func TestPendingOrderJobFailsOnlyStalePendingOrders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conn := dbtest.Open(t)
	repo := orders.NewRepository(conn)
	job := newPendingOrderJob(t, conn, repo)
	job.now = func() time.Time { return now }

	stale := seedOrder(t, conn, enums.OrderStatusPending, now.Add(-45*time.Minute))
	fresh := seedOrder(t, conn, enums.OrderStatusPending, now.Add(-5*time.Minute))
	oldCompleted := seedOrder(t, conn, enums.OrderStatusCompleted, now.Add(-2*time.Hour))
	oldProcessing := seedOrder(t, conn, enums.OrderStatusProcessing, now.Add(-2*time.Hour))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	assertStatus(t, conn, stale.ID, enums.OrderStatusFailed)
	assertStatus(t, conn, fresh.ID, enums.OrderStatusPending)
	assertStatus(t, conn, oldCompleted.ID, enums.OrderStatusCompleted)
	assertStatus(t, conn, oldProcessing.ID, enums.OrderStatusProcessing)

	var events []models.OutboxEvent
	if err := conn.Where("event_type = ?", enums.EventOrderExpired).Find(&events).Error; err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].AggregateID != stale.ID {
		t.Fatalf("expected one order_expired event for %s, got %+v", stale.ID, events)
	}

	// second run finds nothing new
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	var count int64
	conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderExpired).Count(&count)
	if count != 1 {
		t.Fatalf("expected sweep to be idempotent, got %d events", count)
	}
}

func TestPendingOrderJobCollectsPerOrderErrors(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conn := dbtest.Open(t)
	repo := orders.NewRepository(conn)
	seedOrder(t, conn, enums.OrderStatusPending, now.Add(-time.Hour))
	seedOrder(t, conn, enums.OrderStatusPending, now.Add(-2*time.Hour))

	jobIface, err := NewPendingOrderJob(PendingOrderJobParams{
		Logger: logger.Nop(),
		DB:     db.NewFromGorm(conn),
		Orders: repo,
		Outbox: failingEmitter{},
	})
	if err != nil {
		t.Fatalf("NewPendingOrderJob: %v", err)
	}
	job := jobIface.(*pendingOrderJob)
	job.now = func() time.Time { return now }

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 combined errors, got %d (%v)", got, err)
	}

	var pending int64
	conn.Model(&models.Order{}).Where("status = ?", enums.OrderStatusPending).Count(&pending)
	if pending != 2 {
		t.Fatalf("expected rollback to keep orders pending, got %d", pending)
	}
}

func TestNewPendingOrderJobRequiresDependencies(t *testing.T) {
	if _, err := NewPendingOrderJob(PendingOrderJobParams{}); err == nil {
		t.Fatal("expected error without logger")
	}
	job, err := NewPendingOrderJob(PendingOrderJobParams{
		Logger: logger.Nop(),
		DB:     db.NewFromGorm(dbtest.Open(t)),
		Orders: orders.NewRepository(nil),
		Outbox: failingEmitter{},
	})
	if err != nil {
		t.Fatalf("NewPendingOrderJob: %v", err)
	}
	if job.(*pendingOrderJob).timeout != defaultPendingTimeout {
		t.Fatalf("expected default timeout")
	}
}

func newPendingOrderJob(t *testing.T, conn *gorm.DB, repo orders.Repository) *pendingOrderJob {
	t.Helper()
	jobIface, err := NewPendingOrderJob(PendingOrderJobParams{
		Logger:  logger.Nop(),
		DB:      db.NewFromGorm(conn),
		Orders:  repo,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Timeout: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewPendingOrderJob: %v", err)
	}
	return jobIface.(*pendingOrderJob)
}

func seedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{UserID: uuid.New(), Total: 2023, Status: status}
	if err := conn.Omit("Items").Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("backdate order: %v", err)
	}
	return order
}

func assertStatus(t *testing.T, conn *gorm.DB, id uuid.UUID, want enums.OrderStatus) {
	t.Helper()
	var order models.Order
	if err := conn.First(&order, "id = ?", id).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != want {
		t.Fatalf("order %s: expected %s, got %s", id, want, order.Status)
	}
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("emit failed")
}

func TestPendingOrderJobReleasesReservedCoupon(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conn := dbtest.Open(t)
	repo := orders.NewRepository(conn)
	couponSvc, err := coupons.NewService(db.NewFromGorm(conn), coupons.NewRepository(conn))
	if err != nil {
		t.Fatalf("coupons.NewService: %v", err)
	}
	job := newPendingOrderJob(t, conn, repo)
	job.coupons = couponSvc
	job.now = func() time.Time { return now }

	maxUses := 1
	coupon := models.Coupon{Code: "HELD", CodeHash: coupons.HashCode("HELD"), Discount: 10, Active: true, MaxUses: &maxUses}
	if err := conn.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	stale := seedOrder(t, conn, enums.OrderStatusPending, now.Add(-time.Hour))
	if _, err := couponSvc.Reserve(context.Background(), conn, "HELD", stale.UserID); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := repo.AttachCoupon(context.Background(), stale.ID, &coupon.ID); err != nil {
		t.Fatalf("AttachCoupon: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	assertStatus(t, conn, stale.ID, enums.OrderStatusFailed)
	var stored models.Coupon
	if err := conn.First(&stored, "id = ?", coupon.ID).Error; err != nil {
		t.Fatalf("load coupon: %v", err)
	}
	if stored.UsedCount != 0 {
		t.Fatalf("expected reserved use to be released, used_count=%d", stored.UsedCount)
	}
	if _, err := couponSvc.Validate(context.Background(), "HELD", stale.UserID); err != nil {
		t.Fatalf("expected coupon usable again, got %v", err)
	}
}
