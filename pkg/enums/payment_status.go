package enums

import "fmt"

// PaymentStatus is the outcome reported by the payment gateway for one charge.
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusSucceeded,
	PaymentStatusFailed,
}

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// OrderStatus maps a charge outcome onto the order it settles.
func (p PaymentStatus) OrderStatus() OrderStatus {
	if p == PaymentStatusSucceeded {
		return OrderStatusCompleted
	}
	return OrderStatusFailed
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
