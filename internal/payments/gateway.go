package payments

import (
	"context"

	"github.com/angelmondragon/arepera-backend/internal/card"
)

// Status is the gateway outcome of a charge.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ChargeRequest is one charge attempt. Amount is in minor units.
type ChargeRequest struct {
	Amount   int
	Currency string
	Card     card.Data
	Metadata map[string]string
}

// ChargeResult is what the gateway reports back.
type ChargeResult struct {
	Reference    string
	ClientSecret string
	Amount       int
	Status       Status
}

// Gateway charges a card.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
