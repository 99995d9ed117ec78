package realtime

import (
	"context"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
)

// RunCleaner returns deliveries of dead consumers to the queue every interval until the context ends
func RunCleaner(ctx context.Context, connection rmq.Connection, interval time.Duration) {
	cleaner := rmq.NewCleaner(connection)

	log.Info().Msgf("Starting %s queue cleaner process", PositionsQueueName)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			returned, err := cleaner.Clean()
			if err != nil {
				log.Error().Err(err).Msg("Failed to clean")
				continue
			}

			if returned != 0 {
				log.Info().Msgf("Cleaned %d records", returned)
			}

			ready, rejected, err := Backlog(connection)
			if err != nil {
				log.Error().Err(err).Msg("Failed to collect queue stats")
				continue
			}
			log.Debug().Int64("ready", ready).Int64("rejected", rejected).Msg("Vehicle position queue backlog")
		}
	}
}
