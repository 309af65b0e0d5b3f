package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// OrderSettledEvent is emitted when checkout records a charge outcome.
type OrderSettledEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	UserID     uuid.UUID `json:"userId"`
	Total      int       `json:"total"`
	Status     string    `json:"status"`
	PaymentRef string    `json:"paymentRef,omitempty"`
}

// OrderExpiredEvent is emitted when a stale pending order is failed by the sweep.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"orderId"`
	UserID    uuid.UUID `json:"userId"`
	ExpiredAt time.Time `json:"expiredAt"`
}

// CouponRedeemedEvent is emitted when an order consumes a coupon use.
type CouponRedeemedEvent struct {
	CouponID uuid.UUID `json:"couponId"`
	UserID   uuid.UUID `json:"userId"`
	OrderID  uuid.UUID `json:"orderId"`
}

// ProfileEvent is emitted on registration and approval changes.
type ProfileEvent struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Status string    `json:"status"`
}
