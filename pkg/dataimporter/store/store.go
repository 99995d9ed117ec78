package store

import (
	"context"
	"time"

	"github.com/busline/busline/pkg/ctdf"
)

type UpsertResult struct {
	Inserted int64
	Updated  int64
}

// Store persists imported records. Every write is an upsert keyed on the record identifier so
// re-running an import is harmless.
type Store interface {
	UpsertStops(ctx context.Context, stops []*ctdf.Stop) (UpsertResult, error)
	UpsertRoutes(ctx context.Context, routes []*ctdf.Route) (UpsertResult, error)
	UpsertVehicles(ctx context.Context, vehicles []*ctdf.Vehicle) (UpsertResult, error)

	// UpsertPositions is keyed on vehicle and observation time
	UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error
	DeletePositionsBefore(ctx context.Context, before time.Time) (int64, error)

	AllStops(ctx context.Context) ([]*ctdf.Stop, error)
	AllRoutes(ctx context.Context) ([]*ctdf.Route, error)
}
