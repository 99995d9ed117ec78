package realtime

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/redis_client"
)

const PositionsQueueName = "vehicle-positions"

// PositionPublisher pushes samples onto the positions queue for the consumers to write
type PositionPublisher struct {
	Queue rmq.Queue
}

func NewPositionPublisher() (*PositionPublisher, error) {
	queue, err := redis_client.QueueConnection.OpenQueue(PositionsQueueName)
	if err != nil {
		return nil, err
	}

	return &PositionPublisher{Queue: queue}, nil
}

func (p *PositionPublisher) Publish(positions []*ctdf.VehiclePosition) error {
	payloads := make([][]byte, 0, len(positions))

	for _, position := range positions {
		payload, err := json.Marshal(position)
		if err != nil {
			return err
		}
		payloads = append(payloads, payload)
	}

	if len(payloads) == 0 {
		return nil
	}

	return p.Queue.PublishBytes(payloads...)
}

// Backlog returns how many samples are waiting to be written and how many were rejected
func Backlog(connection rmq.Connection) (int64, int64, error) {
	stats, err := connection.CollectStats([]string{PositionsQueueName})
	if err != nil {
		return 0, 0, err
	}

	queueStats := stats.QueueStats[PositionsQueueName]

	return queueStats.ReadyCount, queueStats.RejectedCount, nil
}
