package dataaggregator

import (
	"context"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/dataaggregator/query"
)

// ETASource answers the lookups the arrival estimator and API need through an Aggregator
type ETASource struct {
	Aggregator *Aggregator
}

func NewETASource(aggregator *Aggregator) *ETASource {
	if aggregator == nil {
		aggregator = &GlobalAggregator
	}

	return &ETASource{Aggregator: aggregator}
}

func (s *ETASource) GetStop(ctx context.Context, stopID string) (*ctdf.Stop, error) {
	return LookupWith[*ctdf.Stop](ctx, s.Aggregator, query.Stop{PrimaryIdentifier: stopID})
}

func (s *ETASource) GetRoute(ctx context.Context, routeID string) (*ctdf.Route, error) {
	return LookupWith[*ctdf.Route](ctx, s.Aggregator, query.Route{PrimaryIdentifier: routeID})
}

func (s *ETASource) GetVehicle(ctx context.Context, vehicleID string) (*ctdf.Vehicle, error) {
	return LookupWith[*ctdf.Vehicle](ctx, s.Aggregator, query.Vehicle{PrimaryIdentifier: vehicleID})
}

func (s *ETASource) GetRoutesServing(ctx context.Context, stopID string) ([]*ctdf.Route, error) {
	return LookupWith[[]*ctdf.Route](ctx, s.Aggregator, query.RoutesByStop{StopRef: stopID})
}

// GetActiveRoutes is the loader the topology index is rebuilt from
func (s *ETASource) GetActiveRoutes(ctx context.Context) ([]*ctdf.Route, error) {
	return LookupWith[[]*ctdf.Route](ctx, s.Aggregator, query.ActiveRoutes{})
}

func (s *ETASource) GetActivePositions(ctx context.Context, routeID string, since time.Time) ([]*ctdf.VehiclePosition, error) {
	return LookupWith[[]*ctdf.VehiclePosition](ctx, s.Aggregator, query.VehiclePositions{RouteRef: routeID, Since: since})
}

// GetCurrentPositions returns the samples of every route observed since the given time
func (s *ETASource) GetCurrentPositions(ctx context.Context, since time.Time) ([]*ctdf.VehiclePosition, error) {
	return LookupWith[[]*ctdf.VehiclePosition](ctx, s.Aggregator, query.VehiclePositions{Since: since})
}
