package dataimporter

import (
	"context"
	"fmt"

	"github.com/busline/busline/pkg/dataimporter/store"
	"github.com/busline/busline/pkg/mockdata"
	"github.com/rs/zerolog/log"
)

// Seed upserts a whole network, from a seed file or generated, straight into the store
func Seed(ctx context.Context, storage store.Store, network *mockdata.Network) (JobResult, error) {
	var total JobResult

	stops, err := storage.UpsertStops(ctx, network.Stops)
	if err != nil {
		return total, fmt.Errorf("seeding stops: %w", err)
	}
	total.add(JobResult{Records: len(network.Stops), Inserted: stops.Inserted, Updated: stops.Updated})

	routes, err := storage.UpsertRoutes(ctx, network.Routes)
	if err != nil {
		return total, fmt.Errorf("seeding routes: %w", err)
	}
	total.add(JobResult{Records: len(network.Routes), Inserted: routes.Inserted, Updated: routes.Updated})

	vehicles, err := storage.UpsertVehicles(ctx, network.Vehicles)
	if err != nil {
		return total, fmt.Errorf("seeding vehicles: %w", err)
	}
	total.add(JobResult{Records: len(network.Vehicles), Inserted: vehicles.Inserted, Updated: vehicles.Updated})

	if err := storage.UpsertPositions(ctx, network.Positions); err != nil {
		return total, fmt.Errorf("seeding positions: %w", err)
	}
	total.add(JobResult{Records: len(network.Positions)})

	log.Info().
		Int("stops", len(network.Stops)).
		Int("routes", len(network.Routes)).
		Int("vehicles", len(network.Vehicles)).
		Int("positions", len(network.Positions)).
		Msg("Seeded network")

	return total, nil
}
