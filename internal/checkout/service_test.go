package checkout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/internal/card"
	"github.com/angelmondragon/arepera-backend/internal/cart"
	"github.com/angelmondragon/arepera-backend/internal/coupons"
	"github.com/angelmondragon/arepera-backend/internal/orders"
	"github.com/angelmondragon/arepera-backend/internal/payments"
	"github.com/angelmondragon/arepera-backend/internal/products"
	"github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/db/dbtest"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/metrics"
	"github.com/angelmondragon/arepera-backend/pkg/outbox"
)

type fixture struct {
	svc     Service
	conn    *gorm.DB
	caller  auth.Caller
	gateway *recordingGateway
	coupons coupons.Service
}

type recordingGateway struct {
	inner    payments.Gateway
	calls    int
	err      error
	onCharge func()
}

func (g *recordingGateway) Charge(ctx context.Context, req payments.ChargeRequest) (*payments.ChargeResult, error) {
	g.calls++
	if g.onCharge != nil {
		g.onCharge()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.inner.Charge(ctx, req)
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.NewFromGorm(conn)
	couponSvc, err := coupons.NewService(client, coupons.NewRepository(conn))
	require.NoError(t, err)
	gw := &recordingGateway{inner: payments.NewSimulator(0, nil)}

	svc, err := NewService(Params{
		Tx:       client,
		Carts:    cart.NewRepository(conn),
		Products: products.NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Coupons:  couponSvc,
		Gateway:  gw,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Metrics:  metrics.NewCheckoutMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	caller := auth.Caller{UserID: uuid.New(), Role: enums.UserRoleUser, Status: enums.UserStatusApproved}
	return fixture{svc: svc, conn: conn, caller: caller, gateway: gw, coupons: couponSvc}
}

func (f fixture) seedCart(t *testing.T, lines map[string]int) (models.Cart, []models.Product) {
	t.Helper()
	c := models.Cart{UserID: f.caller.UserID}
	require.NoError(t, f.conn.Create(&c).Error)
	var created []models.Product
	for name, qty := range lines {
		p := models.Product{Name: name, Description: name, Price: 850, Available: true}
		require.NoError(t, f.conn.Create(&p).Error)
		require.NoError(t, f.conn.Create(&models.CartItem{CartID: c.ID, ProductID: p.ID, Quantity: qty}).Error)
		created = append(created, p)
	}
	return c, created
}

func goodCard() card.Data {
	return card.Data{Holder: "Ana Perez", Number: "4242424242424242", Expiration: "12/30", CVV: "123"}
}

func loadOrder(t *testing.T, conn *gorm.DB, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, conn.Preload("Items").First(&order, "id = ?", id).Error)
	return order
}

func TestCheckoutSucceeds(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Reina Pepiada": 2})

	result, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{TotalAmount: 2023, CartID: c.ID, Card: goodCard()})
	require.NoError(t, err)
	assert.Equal(t, payments.StatusSucceeded, result.Status)
	assert.NotEmpty(t, result.PaymentRef)
	assert.NotEmpty(t, result.ClientSecret)

	order := loadOrder(t, f.conn, result.OrderID)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	assert.Equal(t, 2023, order.Total)
	require.NotNil(t, order.PaymentRef)
	assert.Equal(t, result.PaymentRef, *order.PaymentRef)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Reina Pepiada", order.Items[0].ProductName)
	assert.Equal(t, 850, order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, "****4242", payment.CardNumber)
	assert.Equal(t, "***", payment.CVV)
	assert.Equal(t, enums.PaymentStatusSucceeded, payment.Status)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("aggregate_id = ?", order.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCompleted, events[0].EventType)
}

func TestCheckoutDeclinedCardFailsOrder(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Domino": 1})
	cardData := goodCard()
	cardData.Number = "4242424242420000"

	result, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{TotalAmount: 1012, CartID: c.ID, Card: cardData})
	require.NoError(t, err)
	assert.Equal(t, payments.StatusFailed, result.Status)

	order := loadOrder(t, f.conn, result.OrderID)
	assert.Equal(t, enums.OrderStatusFailed, order.Status)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "****0000", payment.CardNumber)
}

func TestCheckoutInvalidCardLeavesOrderPending(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Domino": 1})
	cardData := goodCard()
	cardData.Number = "4242424242424241"

	_, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{TotalAmount: 1012, CartID: c.ID, Card: cardData})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidCard))
	assert.Zero(t, f.gateway.calls)

	var stored []models.Order
	require.NoError(t, f.conn.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.OrderStatusPending, stored[0].Status)

	var paymentCount int64
	require.NoError(t, f.conn.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Zero(t, paymentCount)
}

func TestCheckoutPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, prods := f.seedCart(t, map[string]int{"Domino": 1})

	blank := goodCard()
	blank.CVV = " "
	_, err := f.svc.CreateCheckoutSession(ctx, f.caller, Input{TotalAmount: 100, CartID: c.ID, Card: blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.CreateCheckoutSession(ctx, f.caller, Input{TotalAmount: 0, CartID: c.ID, Card: goodCard()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.CreateCheckoutSession(ctx, auth.Caller{}, Input{TotalAmount: 100, CartID: c.ID, Card: goodCard()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	stranger := auth.Caller{UserID: uuid.New(), Role: enums.UserRoleUser, Status: enums.UserStatusApproved}
	_, err = f.svc.CreateCheckoutSession(ctx, stranger, Input{TotalAmount: 100, CartID: c.ID, Card: goodCard()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))

	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", prods[0].ID).Update("available", false).Error)
	_, err = f.svc.CreateCheckoutSession(ctx, f.caller, Input{TotalAmount: 100, CartID: c.ID, Card: goodCard()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnavailableItems))

	require.NoError(t, f.conn.Where("cart_id = ?", c.ID).Delete(&models.CartItem{}).Error)
	_, err = f.svc.CreateCheckoutSession(ctx, f.caller, Input{TotalAmount: 100, CartID: c.ID, Card: goodCard()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart))

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.gateway.calls)
}

func TestCheckoutGatewayErrorLeavesOrderPending(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Domino": 1})
	f.gateway.err = pkgerrors.New(pkgerrors.CodeDependency, "gateway down")

	_, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{TotalAmount: 1012, CartID: c.ID, Card: goodCard()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var order models.Order
	require.NoError(t, f.conn.First(&order).Error)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestCheckoutRedeemsCouponOnSuccess(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Reina Pepiada": 2})
	maxUses := 1
	coupon := models.Coupon{Code: "WELCOME-ABCD1234", CodeHash: coupons.HashCode("WELCOME-ABCD1234"), Discount: 15, Active: true, MaxUses: &maxUses}
	require.NoError(t, f.conn.Create(&coupon).Error)
	require.NoError(t, f.conn.Create(&models.CouponUsage{CouponID: coupon.ID, UserID: f.caller.UserID}).Error)

	result, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{
		TotalAmount: 1720, CartID: c.ID, Card: goodCard(), CouponCode: "welcome-abcd1234",
	})
	require.NoError(t, err)
	assert.Equal(t, payments.StatusSucceeded, result.Status)

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, stored.UsedCount)

	var usage models.CouponUsage
	require.NoError(t, f.conn.First(&usage, "coupon_id = ?", coupon.ID).Error)
	assert.True(t, usage.Used)

	order := loadOrder(t, f.conn, result.OrderID)
	require.NotNil(t, order.CouponID)
	assert.Equal(t, coupon.ID, *order.CouponID)

	var event models.OutboxEvent
	require.NoError(t, f.conn.First(&event, "event_type = ?", enums.EventCouponRedeemed).Error)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(event.Payload, &envelope))
	var data outbox.CouponRedeemedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, order.ID, data.OrderID)

	// the single use is gone
	_, err = f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{
		TotalAmount: 1720, CartID: c.ID, Card: goodCard(), CouponCode: "WELCOME-ABCD1234",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExhaustedCoupon))
}

func TestCheckoutDeclineDoesNotConsumeCoupon(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Reina Pepiada": 2})
	coupon := models.Coupon{Code: "KEEP", CodeHash: coupons.HashCode("KEEP"), Discount: 15, Active: true}
	require.NoError(t, f.conn.Create(&coupon).Error)
	cardData := goodCard()
	cardData.Number = "4242424242420000"

	result, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{TotalAmount: 1720, CartID: c.ID, Card: cardData, CouponCode: "KEEP"})
	require.NoError(t, err)
	assert.Equal(t, payments.StatusFailed, result.Status)

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Zero(t, stored.UsedCount)

	order := loadOrder(t, f.conn, result.OrderID)
	assert.Nil(t, order.CouponID)
	_, err = f.coupons.Validate(context.Background(), "KEEP", f.caller.UserID)
	assert.NoError(t, err)
}

func seedSingleUseCoupon(t *testing.T, f fixture, code string) models.Coupon {
	t.Helper()
	maxUses := 1
	coupon := models.Coupon{Code: code, CodeHash: coupons.HashCode(code), Discount: 15, Active: true, MaxUses: &maxUses}
	require.NoError(t, f.conn.Create(&coupon).Error)
	return coupon
}

func TestCheckoutKeepsCouponWhenLastUseIsTakenDuringCharge(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Reina Pepiada": 2})
	coupon := seedSingleUseCoupon(t, f, "LASTONE")

	var competing error
	f.gateway.onCharge = func() {
		_, competing = f.coupons.Reserve(context.Background(), f.conn, "LASTONE", uuid.New())
	}

	result, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{
		TotalAmount: 1720, CartID: c.ID, Card: goodCard(), CouponCode: "LASTONE",
	})
	require.NoError(t, err)
	assert.Equal(t, payments.StatusSucceeded, result.Status)
	assert.True(t, pkgerrors.IsCode(competing, pkgerrors.CodeExhaustedCoupon))

	order := loadOrder(t, f.conn, result.OrderID)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	require.NotNil(t, order.CouponID)
	assert.Equal(t, coupon.ID, *order.CouponID)

	var paymentCount int64
	require.NoError(t, f.conn.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&paymentCount).Error)
	assert.EqualValues(t, 1, paymentCount)

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestSnapshotUsesPlaceholderForDeletedProduct(t *testing.T) {
	f := newFixture(t)
	c, prods := f.seedCart(t, map[string]int{"Gone": 1})
	impl := f.svc.(*service)

	record, err := impl.loadCart(context.Background(), c.ID, f.caller.UserID)
	require.NoError(t, err)
	require.NoError(t, f.conn.Delete(&models.Product{}, "id = ?", prods[0].ID).Error)

	order, err := impl.createPendingOrder(context.Background(), f.caller.UserID, record, 500)
	require.NoError(t, err)
	stored := loadOrder(t, f.conn, order.ID)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, PlaceholderProductName, stored.Items[0].ProductName)
	assert.Zero(t, stored.Items[0].Price)
	assert.Nil(t, stored.Items[0].ProductID)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
}

func TestCompleteOrderIsIdempotentAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := f.seedCart(t, map[string]int{"Domino": 1})
	order := models.Order{UserID: f.caller.UserID, Total: 1012, Status: enums.OrderStatusPending}
	require.NoError(t, f.conn.Create(&order).Error)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.svc.CompleteOrder(ctx, f.caller, order.ID))
		stored := loadOrder(t, f.conn, order.ID)
		assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
		var items int64
		require.NoError(t, f.conn.Model(&models.CartItem{}).Where("cart_id = ?", c.ID).Count(&items).Error)
		assert.Zero(t, items)
	}

	var carts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Count(&carts).Error)
	assert.EqualValues(t, 1, carts)

	stranger := auth.Caller{UserID: uuid.New(), Role: enums.UserRoleUser, Status: enums.UserStatusApproved}
	err := f.svc.CompleteOrder(ctx, stranger, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCheckoutSettlesWhenCouponChangesDuringCharge(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Reina Pepiada": 2})
	coupon := seedSingleUseCoupon(t, f, "SWITCHED")

	f.gateway.onCharge = func() {
		require.NoError(t, f.conn.Model(&models.Coupon{}).Where("id = ?", coupon.ID).
			Updates(map[string]any{"active": false, "used_count": 1}).Error)
	}

	result, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{
		TotalAmount: 1720, CartID: c.ID, Card: goodCard(), CouponCode: "SWITCHED",
	})
	require.NoError(t, err)

	order := loadOrder(t, f.conn, result.OrderID)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	require.NotNil(t, order.PaymentRef)
	assert.Equal(t, result.PaymentRef, *order.PaymentRef)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "order_id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusSucceeded, payment.Status)
}

func TestCheckoutGatewayErrorReleasesCoupon(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Domino": 1})
	coupon := seedSingleUseCoupon(t, f, "RETRY")
	f.gateway.err = pkgerrors.New(pkgerrors.CodeDependency, "gateway down")

	_, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{
		TotalAmount: 860, CartID: c.ID, Card: goodCard(), CouponCode: "RETRY",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var stored models.Coupon
	require.NoError(t, f.conn.First(&stored, "id = ?", coupon.ID).Error)
	assert.Zero(t, stored.UsedCount)

	var order models.Order
	require.NoError(t, f.conn.First(&order).Error)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Nil(t, order.CouponID)

	f.gateway.err = nil
	result, err := f.svc.CreateCheckoutSession(context.Background(), f.caller, Input{
		TotalAmount: 860, CartID: c.ID, Card: goodCard(), CouponCode: "RETRY",
	})
	require.NoError(t, err)
	assert.Equal(t, payments.StatusSucceeded, result.Status)
}

func TestCheckoutRejectsCouponTakenBeforeReservation(t *testing.T) {
	f := newFixture(t)
	c, _ := f.seedCart(t, map[string]int{"Domino": 1})
	seedSingleUseCoupon(t, f, "GONE")
	impl := f.svc.(*service)

	validation, err := f.coupons.Validate(context.Background(), "GONE", f.caller.UserID)
	require.NoError(t, err)
	_, err = f.coupons.Reserve(context.Background(), f.conn, "GONE", uuid.New())
	require.NoError(t, err)

	record, err := impl.loadCart(context.Background(), c.ID, f.caller.UserID)
	require.NoError(t, err)
	order, err := impl.createPendingOrder(context.Background(), f.caller.UserID, record, 860)
	require.NoError(t, err)

	_, err = impl.reserveCoupon(context.Background(), f.caller.UserID, order.ID, validation)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExhaustedCoupon))
	assert.Zero(t, f.gateway.calls)

	stored := loadOrder(t, f.conn, order.ID)
	assert.Nil(t, stored.CouponID)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
}
