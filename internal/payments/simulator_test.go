package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/arepera-backend/internal/card"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

func validCard() card.Data {
	return card.Data{Holder: "Ana Perez", Number: "4242 4242 4242 4242", Expiration: "12/30", CVV: "123"}
}

func newTestSimulator(delay time.Duration) *Simulator {
	sim := NewSimulator(delay, nil)
	sim.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return sim
}

func TestChargeSucceeds(t *testing.T) {
	result, err := newTestSimulator(0).Charge(context.Background(), ChargeRequest{Amount: 2023, Card: validCard()})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Len(t, result.ClientSecret, 32)
	assert.NotEmpty(t, result.Reference)
	assert.Equal(t, 2023, result.Amount)
}

func TestChargeDeclinesFailureFixture(t *testing.T) {
	c := validCard()
	c.Number = "4242424242420000"
	// a long delay proves the decline path never waits
	result, err := newTestSimulator(time.Hour).Charge(context.Background(), ChargeRequest{Amount: 100, Card: c})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestChargeRejectsBadInput(t *testing.T) {
	sim := newTestSimulator(0)

	_, err := sim.Charge(context.Background(), ChargeRequest{Amount: 0, Card: validCard()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad := validCard()
	bad.Number = "4242424242424241"
	_, err = sim.Charge(context.Background(), ChargeRequest{Amount: 100, Card: bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidCard))

	expired := validCard()
	expired.Expiration = "01/20"
	_, err = sim.Charge(context.Background(), ChargeRequest{Amount: 100, Card: expired})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidCard))
}

func TestChargeHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestSimulator(time.Hour).Charge(ctx, ChargeRequest{Amount: 100, Card: validCard()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
