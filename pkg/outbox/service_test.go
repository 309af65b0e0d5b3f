package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/arepera-backend/pkg/db/dbtest"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
)

func TestEmitPersistsEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())
	ctx := context.Background()
	orderID := uuid.New()

	err := svc.Emit(ctx, conn, DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          OrderSettledEvent{OrderID: orderID, Total: 2023, Status: "completed"},
	})
	require.NoError(t, err)

	exists, err := repo.Exists(ctx, enums.EventOrderCompleted, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	assert.True(t, exists)

	rows, err := repo.ListByAggregate(ctx, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	var data OrderSettledEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, 2023, data.Total)
}

func TestEmitRejectsUnknownTypesAndMissingTx(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	ctx := context.Background()

	err := svc.Emit(ctx, nil, DomainEvent{EventType: enums.EventOrderFailed, AggregateType: enums.AggregateOrder})
	assert.Error(t, err)

	conn := dbtest.Open(t)
	err = svc.Emit(ctx, conn, DomainEvent{EventType: "bogus", AggregateType: enums.AggregateOrder})
	assert.Error(t, err)
}
