package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/dataimporter/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (f failingWriter) UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error {
	return errors.New("database unavailable")
}

func positionDelivery(t *testing.T, position *ctdf.VehiclePosition) *rmq.TestDelivery {
	t.Helper()

	payload, err := json.Marshal(position)
	require.NoError(t, err)

	return rmq.NewTestDeliveryString(string(payload))
}

func TestBatchConsumerWritesPositions(t *testing.T) {
	memory := store.NewMemory()
	consumer := NewBatchConsumer(0, memory)

	now := time.Now().UTC().Truncate(time.Second)
	good := positionDelivery(t, &ctdf.VehiclePosition{VehicleRef: "V1", RouteRef: "R", LastStopRef: "A", Timestamp: now})
	other := positionDelivery(t, &ctdf.VehiclePosition{VehicleRef: "V2", RouteRef: "R", LastStopRef: "B", Timestamp: now})
	broken := rmq.NewTestDeliveryString("{not json")
	anonymous := positionDelivery(t, &ctdf.VehiclePosition{RouteRef: "R", Timestamp: now})

	consumer.Consume(rmq.Deliveries{good, broken, other, anonymous})

	assert.Equal(t, rmq.Acked, good.State)
	assert.Equal(t, rmq.Acked, other.State)
	assert.Equal(t, rmq.Rejected, broken.State)
	assert.Equal(t, rmq.Rejected, anonymous.State)

	positions, err := memory.GetActivePositions(context.Background(), "R", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, positions, 2)
}

func TestBatchConsumerRejectsOnWriteFailure(t *testing.T) {
	consumer := NewBatchConsumer(0, failingWriter{})

	delivery := positionDelivery(t, &ctdf.VehiclePosition{VehicleRef: "V1", RouteRef: "R", Timestamp: time.Now()})
	consumer.Consume(rmq.Deliveries{delivery})

	assert.Equal(t, rmq.Rejected, delivery.State)
}
