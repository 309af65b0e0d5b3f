package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateCoupon  OutboxAggregateType = "coupon"
	AggregateProfile OutboxAggregateType = "profile"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateCoupon,
	AggregateProfile,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event recorded in outbox_events.
type OutboxEventType string

const (
	EventOrderCompleted    OutboxEventType = "order_completed"
	EventOrderFailed       OutboxEventType = "order_failed"
	EventOrderExpired      OutboxEventType = "order_expired"
	EventCouponRedeemed    OutboxEventType = "coupon_redeemed"
	EventProfileRegistered OutboxEventType = "profile_registered"
	EventProfileStatusSet  OutboxEventType = "profile_status_changed"
)

var validEventTypes = []OutboxEventType{
	EventOrderCompleted,
	EventOrderFailed,
	EventOrderExpired,
	EventCouponRedeemed,
	EventProfileRegistered,
	EventProfileStatusSet,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
