package dataimporter

import (
	"context"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/realtime"
)

// QueueSink publishes positions for the realtime consumers instead of writing them directly
type QueueSink struct {
	Publisher *realtime.PositionPublisher
}

func NewQueueSink() (*QueueSink, error) {
	publisher, err := realtime.NewPositionPublisher()
	if err != nil {
		return nil, err
	}

	return &QueueSink{Publisher: publisher}, nil
}

func (q *QueueSink) UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error {
	return q.Publisher.Publish(positions)
}
