package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/metrics"
	"github.com/busline/busline/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

const numConsumers = 5
const batchSize = 200
const writeTimeout = 30 * time.Second

type PositionWriter interface {
	UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error
}

func StartConsumers(writer PositionWriter) error {
	log.Info().Msg("Starting vehicle position consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(PositionsQueueName)
	if err != nil {
		return err
	}
	if err := queue.StartConsuming(numConsumers*batchSize, 1*time.Second); err != nil {
		return err
	}

	for i := 0; i < numConsumers; i++ {
		log.Info().Msgf("Starting vehicle position consumer %d", i)

		if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", PositionsQueueName, i), batchSize, 2*time.Second, NewBatchConsumer(i, writer)); err != nil {
			return err
		}
	}

	return nil
}

type BatchConsumer struct {
	id     int
	writer PositionWriter
}

func NewBatchConsumer(id int, writer PositionWriter) *BatchConsumer {
	return &BatchConsumer{id: id, writer: writer}
}

func (consumer *BatchConsumer) Consume(batch rmq.Deliveries) {
	var positions []*ctdf.VehiclePosition
	var decoded rmq.Deliveries

	for _, delivery := range batch {
		var position *ctdf.VehiclePosition
		if err := json.Unmarshal([]byte(delivery.Payload()), &position); err != nil || position == nil || position.VehicleRef == "" {
			log.Error().Err(err).Int("consumer", consumer.id).Msg("Rejecting undecodable vehicle position")

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject vehicle position")
			}
			continue
		}

		positions = append(positions, position)
		decoded = append(decoded, delivery)
	}

	if len(positions) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	startTime := time.Now()
	err := consumer.writer.UpsertPositions(ctx, positions)
	if err != nil {
		log.Error().Err(err).Int("consumer", consumer.id).Int("length", len(positions)).Msg("Failed to bulk write vehicle positions")

		for _, err := range decoded.Reject() {
			log.Error().Err(err).Msg("Failed to reject vehicle position")
		}
		return
	}

	log.Debug().Int("length", len(positions)).Str("time", time.Since(startTime).String()).Msg("Bulk write")
	metrics.PositionsWritten.Add(float64(len(positions)))

	for _, err := range decoded.Ack() {
		log.Error().Err(err).Msg("Failed to acknowledge vehicle position")
	}
}
