package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/arepera-backend/internal/cart"
	"github.com/angelmondragon/arepera-backend/internal/coupons"
	"github.com/angelmondragon/arepera-backend/internal/orders"
	"github.com/angelmondragon/arepera-backend/internal/payments"
	"github.com/angelmondragon/arepera-backend/internal/pricing"
	"github.com/angelmondragon/arepera-backend/internal/products"
	"github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/metrics"
	"github.com/angelmondragon/arepera-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type couponReserver interface {
	Validate(ctx context.Context, code string, userID uuid.UUID) (*coupons.Validation, error)
	Reserve(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID) (*coupons.Validation, error)
	Release(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error
}

// Service runs the checkout pipeline.
type Service interface {
	CreateCheckoutSession(ctx context.Context, caller auth.Caller, input Input) (*Result, error)
	CompleteOrder(ctx context.Context, caller auth.Caller, orderID uuid.UUID) error
}

// Params bundles the checkout dependencies.
type Params struct {
	Tx       txRunner
	Carts    *cart.Repository
	Products *products.Repository
	Orders   orders.Repository
	Coupons  couponReserver
	Gateway  payments.Gateway
	Outbox   outbox.Emitter
	Pricing  *pricing.Calculator
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Currency string
}

type service struct {
	tx       txRunner
	carts    *cart.Repository
	products *products.Repository
	orders   orders.Repository
	coupons  couponReserver
	gateway  payments.Gateway
	outbox   outbox.Emitter
	pricing  *pricing.Calculator
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	currency string
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(p Params) (Service, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Coupons == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Pricing == nil {
		p.Pricing = pricing.Default()
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Currency == "" {
		p.Currency = "usd"
	}
	return &service{
		tx:       p.Tx,
		carts:    p.Carts,
		products: p.Products,
		orders:   p.Orders,
		coupons:  p.Coupons,
		gateway:  p.Gateway,
		outbox:   p.Outbox,
		pricing:  p.Pricing,
		metrics:  p.Metrics,
		logg:     p.Logger,
		currency: p.Currency,
		now:      time.Now,
	}, nil
}

func (s *service) CreateCheckoutSession(ctx context.Context, caller auth.Caller, input Input) (*Result, error) {
	result, outcome, err := s.createCheckoutSession(ctx, caller, input)
	s.metrics.IncOutcome(outcome)
	return result, err
}

func (s *service) createCheckoutSession(ctx context.Context, caller auth.Caller, input Input) (*Result, string, error) {
	if !caller.IsAuthenticated() {
		return nil, metrics.OutcomeRejected, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if missing := input.Card.Missing(); len(missing) > 0 {
		return nil, metrics.OutcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "card data required").
			WithDetails(map[string]any{"missing": missing})
	}
	if input.TotalAmount <= 0 {
		return nil, metrics.OutcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "total amount must be positive")
	}
	if input.CartID == uuid.Nil {
		return nil, metrics.OutcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id": caller.UserID.String(),
		"cart_id": input.CartID.String(),
	})

	var validation *coupons.Validation
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		v, err := s.coupons.Validate(ctx, code, caller.UserID)
		if err != nil {
			return nil, metrics.OutcomeRejected, err
		}
		validation = v
	}

	record, err := s.loadCart(ctx, input.CartID, caller.UserID)
	if err != nil {
		return nil, metrics.OutcomeRejected, err
	}
	s.warnOnTotalMismatch(ctx, record, validation, input.TotalAmount)

	order, err := s.createPendingOrder(ctx, caller.UserID, record, input.TotalAmount)
	if err != nil {
		s.logg.Error(ctx, "checkout.create_order_failed", err)
		return nil, metrics.OutcomeError, err
	}
	ctx = s.logg.WithField(ctx, "order_id", order.ID.String())

	// the order stays pending when the card or the gateway rejects the charge
	if err := input.Card.Validate(s.now()); err != nil {
		s.logg.Warn(ctx, "checkout.invalid_card")
		return nil, metrics.OutcomeInvalidCard, err
	}

	reserved, err := s.reserveCoupon(ctx, caller.UserID, order.ID, validation)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.coupon_reservation_failed")
		return nil, metrics.OutcomeRejected, err
	}

	started := time.Now()
	charge, err := s.gateway.Charge(ctx, payments.ChargeRequest{
		Amount:   input.TotalAmount,
		Currency: s.currency,
		Card:     input.Card,
		Metadata: map[string]string{"order_id": order.ID.String(), "user_id": caller.UserID.String()},
	})
	s.metrics.ObserveGateway(time.Since(started))
	if err != nil {
		s.logg.Error(ctx, "checkout.gateway_failed", err)
		s.releaseCoupon(ctx, caller.UserID, order.ID, reserved)
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidCard) {
			return nil, metrics.OutcomeInvalidCard, err
		}
		return nil, metrics.OutcomeError, err
	}

	if err := s.settle(ctx, caller, order, input, charge, reserved); err != nil {
		s.logg.Error(ctx, "checkout.settle_failed", err)
		return nil, metrics.OutcomeError, err
	}

	outcome := metrics.OutcomeSucceeded
	if charge.Status != payments.StatusSucceeded {
		outcome = metrics.OutcomeDeclined
	}
	s.logg.Info(s.logg.WithField(ctx, "status", string(charge.Status)), "checkout.settled")

	return &Result{
		PaymentRef:   charge.Reference,
		ClientSecret: charge.ClientSecret,
		OrderID:      order.ID,
		Status:       charge.Status,
	}, outcome, nil
}

// loadCart returns the caller's cart with products, rejecting empty carts and
// carts holding unavailable or deleted products. A cart owned by someone else
// is reported as empty.
func (s *service) loadCart(ctx context.Context, cartID, userID uuid.UUID) (*models.Cart, error) {
	record, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if record.UserID != userID || len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	var unavailable []string
	for _, item := range record.Items {
		if item.Product == nil || !item.Product.Available {
			unavailable = append(unavailable, item.ProductID.String())
		}
	}
	if len(unavailable) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailableItems, "some products are no longer available").
			WithDetails(map[string]any{"productIds": unavailable})
	}
	return record, nil
}

func (s *service) warnOnTotalMismatch(ctx context.Context, record *models.Cart, validation *coupons.Validation, total int) {
	discount := 0
	if validation != nil {
		discount = validation.Discount
	}
	summary := s.pricing.Compute(cart.Lines(record.Items), discount)
	if summary.Total != total {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"expected_total": summary.Total,
			"received_total": total,
		}), "checkout.total_mismatch")
	}
}

// createPendingOrder writes the order and its item snapshots in one
// transaction. Products deleted since the cart was read snapshot as a
// placeholder priced at zero.
func (s *service) createPendingOrder(ctx context.Context, userID uuid.UUID, record *models.Cart, total int) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(record.Items))
		for _, item := range record.Items {
			ids = append(ids, item.ProductID)
		}
		current, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		ordersRepo := s.orders.WithTx(tx)
		created, err := ordersRepo.CreateOrder(ctx, &models.Order{
			UserID: userID,
			Total:  total,
			Status: enums.OrderStatusPending,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(record.Items))
		for _, line := range record.Items {
			snapshot := models.OrderItem{
				OrderID:     created.ID,
				ProductName: PlaceholderProductName,
				Quantity:    line.Quantity,
			}
			if product, ok := current[line.ProductID]; ok {
				productID := product.ID
				snapshot.ProductID = &productID
				snapshot.ProductName = product.Name
				snapshot.Price = product.Price
			}
			items = append(items, snapshot)
		}
		if err := ordersRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		created.Items = items
		order = created
		return nil
	})
	return order, err
}

// reserveCoupon takes one use of the coupon before the charge and links it to
// the order, so a use cannot disappear while the gateway is working.
func (s *service) reserveCoupon(ctx context.Context, userID, orderID uuid.UUID, validation *coupons.Validation) (*coupons.Validation, error) {
	if validation == nil {
		return nil, nil
	}
	var reserved *coupons.Validation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		v, err := s.coupons.Reserve(ctx, tx, validation.Code, userID)
		if err != nil {
			return err
		}
		rows, err := s.orders.WithTx(tx).AttachCoupon(ctx, orderID, &v.CouponID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach coupon")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
		}
		reserved = v
		return nil
	})
	return reserved, err
}

// releaseCoupon gives a reserved use back when the charge never completed.
// The order stays pending without a coupon.
func (s *service) releaseCoupon(ctx context.Context, userID, orderID uuid.UUID, reserved *coupons.Validation) {
	if reserved == nil {
		return
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.coupons.Release(ctx, tx, reserved.CouponID, userID); err != nil {
			return err
		}
		_, err := s.orders.WithTx(tx).AttachCoupon(ctx, orderID, nil)
		return err
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "coupon_id", reserved.CouponID.String()), "checkout.coupon_release_failed", err)
	}
}

// settle records the charge outcome, the masked payment and the outbox events
// atomically. A declined charge gives the reserved coupon use back.
func (s *service) settle(ctx context.Context, caller auth.Caller, order *models.Order, input Input, charge *payments.ChargeResult, reserved *coupons.Validation) error {
	paymentStatus := enums.PaymentStatusFailed
	if charge.Status == payments.StatusSucceeded {
		paymentStatus = enums.PaymentStatusSucceeded
	}
	orderStatus := paymentStatus.OrderStatus()

	var redeemed *uuid.UUID
	if reserved != nil && paymentStatus == enums.PaymentStatusSucceeded {
		id := reserved.CouponID
		redeemed = &id
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if reserved != nil && redeemed == nil {
			if err := s.coupons.Release(ctx, tx, reserved.CouponID, caller.UserID); err != nil {
				return err
			}
		}

		ordersRepo := s.orders.WithTx(tx)
		rows, err := ordersRepo.SettleOrder(ctx, order.ID, orderStatus, charge.Reference, redeemed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
		}

		masked := input.Card.Masked()
		reference := charge.Reference
		if _, err := ordersRepo.CreatePayment(ctx, &models.Payment{
			OrderID:    order.ID,
			Amount:     input.TotalAmount,
			CardHolder: masked.Holder,
			CardNumber: masked.Number,
			Expiration: masked.Expiration,
			CVV:        masked.CVV,
			Status:     paymentStatus,
			Reference:  &reference,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}

		actor := &outbox.ActorRef{UserID: caller.UserID, Role: string(caller.Role)}
		if redeemed != nil {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCouponRedeemed,
				AggregateType: enums.AggregateCoupon,
				AggregateID:   *redeemed,
				Actor:         actor,
				Data:          outbox.CouponRedeemedEvent{CouponID: *redeemed, UserID: caller.UserID, OrderID: order.ID},
			}); err != nil {
				return err
			}
		}

		eventType := enums.EventOrderFailed
		if orderStatus == enums.OrderStatusCompleted {
			eventType = enums.EventOrderCompleted
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: outbox.OrderSettledEvent{
				OrderID:    order.ID,
				UserID:     caller.UserID,
				Total:      order.Total,
				Status:     string(orderStatus),
				PaymentRef: charge.Reference,
			},
		})
	})
}

// CompleteOrder marks the caller's order completed and empties their cart.
// Repeating it is harmless.
func (s *service) CompleteOrder(ctx context.Context, caller auth.Caller, orderID uuid.UUID) error {
	if !caller.IsAuthenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		if _, err := ordersRepo.FindByIDAndUser(ctx, orderID, caller.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := ordersRepo.MarkCompleted(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		if err := s.carts.WithTx(tx).ClearForUser(ctx, caller.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
}
