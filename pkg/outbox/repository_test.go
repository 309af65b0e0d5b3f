package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/arepera-backend/pkg/db/dbtest"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/enums"
)

func TestFetchMarkAndPrune(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		event := &models.OutboxEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{"version":1}`),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Insert(conn, event))
		ids = append(ids, event.ID)
	}

	batch, err := repo.FetchUnpublished(conn, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, ids[0], batch[0].ID)
	assert.Equal(t, ids[1], batch[1].ID)

	require.NoError(t, repo.MarkPublishedTx(conn, ids[0], base.Add(time.Hour)))
	require.NoError(t, repo.MarkPublishedTx(conn, ids[1], base.Add(48*time.Hour)))

	batch, err = repo.FetchUnpublished(conn, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, ids[2], batch[0].ID)

	deleted, err := repo.DeletePublishedBefore(ctx, conn, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}
