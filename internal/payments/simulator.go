package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/internal/card"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
)

const DefaultDelay = 1500 * time.Millisecond

// Simulator is an in-process gateway. Cards ending in 0000 are declined
// immediately; every other valid card succeeds after Delay.
type Simulator struct {
	delay time.Duration
	logg  *logger.Logger
	now   func() time.Time
}

func NewSimulator(delay time.Duration, logg *logger.Logger) *Simulator {
	if delay < 0 {
		delay = 0
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Simulator{delay: delay, logg: logg, now: time.Now}
}

func (s *Simulator) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if err := req.Card.Validate(s.now()); err != nil {
		return nil, err
	}

	secret, err := clientSecret()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate client secret")
	}
	result := &ChargeResult{
		Reference:    uuid.NewString(),
		ClientSecret: secret,
		Amount:       req.Amount,
		Status:       StatusSucceeded,
	}

	if card.IsFailureFixture(req.Card.Number) {
		result.Status = StatusFailed
		s.log(ctx, req, result)
		return result, nil
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "payment gateway timed out")
		case <-timer.C:
		}
	}

	s.log(ctx, req, result)
	return result, nil
}

func (s *Simulator) log(ctx context.Context, req ChargeRequest, result *ChargeResult) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_ref": result.Reference,
		"amount":      req.Amount,
		"card":        card.Mask(req.Card.Number),
		"status":      string(result.Status),
	})
	s.logg.Info(ctx, "simulated charge processed")
}

func clientSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
