package eta

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/topology"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const maxRouteFetches = 16

// Estimator computes arrival estimates at a stop from the last known vehicle positions. It keeps
// no state between calls and is safe for concurrent use.
type Estimator struct {
	source   DataSource
	topology TopologyProvider
	options  Options
}

func NewEstimator(source DataSource, topology TopologyProvider, options Options) *Estimator {
	return &Estimator{
		source:   source,
		topology: topology,
		options:  options.withDefaults(),
	}
}

func (e *Estimator) Options() Options {
	return e.options
}

// EstimateArrivals returns the estimates for every tracked vehicle heading towards the stop, sorted
// by ascending ETA. An empty routeID considers every route serving the stop.
func (e *Estimator) EstimateArrivals(ctx context.Context, targetStopID string, routeID string, now time.Time) ([]ctdf.ArrivalEstimate, error) {
	stop, err := e.source.GetStop(ctx, targetStopID)
	if errors.Is(err, ctdf.ErrNotFound) || (err == nil && stop == nil) {
		return nil, fmt.Errorf("%w: %s", ErrStopNotFound, targetStopID)
	} else if err != nil {
		return nil, err
	}

	index := e.topology.Current()

	candidates, err := e.candidateRoutes(index, stop, routeID)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[[]ctdf.ArrivalEstimate]().
		WithErrors().
		WithMaxGoroutines(maxRouteFetches)

	for _, candidate := range candidates {
		p.Go(func() ([]ctdf.ArrivalEstimate, error) {
			return e.estimateRoute(ctx, index, candidate, stop.PrimaryIdentifier, now)
		})
	}

	routeEstimates, err := p.Wait()
	if err != nil {
		return nil, err
	}

	estimates := []ctdf.ArrivalEstimate{}
	for _, routeEstimate := range routeEstimates {
		estimates = append(estimates, routeEstimate...)
	}

	sort.SliceStable(estimates, func(i, j int) bool {
		if estimates[i].ETAMinutes != estimates[j].ETAMinutes {
			return estimates[i].ETAMinutes < estimates[j].ETAMinutes
		}
		if estimates[i].RouteRef != estimates[j].RouteRef {
			return estimates[i].RouteRef < estimates[j].RouteRef
		}
		return estimates[i].VehicleRef < estimates[j].VehicleRef
	})

	return estimates, nil
}

// candidateRoutes only returns routes the stop is actually placed on in the topology, as those are
// the only ones a forward path can be computed for
func (e *Estimator) candidateRoutes(index *topology.Index, stop *ctdf.Stop, routeID string) ([]string, error) {
	if routeID != "" {
		if _, err := index.Position(routeID, stop.PrimaryIdentifier); err != nil {
			return nil, fmt.Errorf("%w: %s at %s", ErrRouteNotFound, routeID, stop.PrimaryIdentifier)
		}

		return []string{routeID}, nil
	}

	seen := map[string]bool{}
	var candidates []string

	for _, candidate := range append(index.RoutesServing(stop.PrimaryIdentifier), stop.Routes...) {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		if _, err := index.Position(candidate, stop.PrimaryIdentifier); err != nil {
			log.Debug().Str("stop", stop.PrimaryIdentifier).Str("route", candidate).Msg("Stop lists route missing from topology")
			continue
		}

		candidates = append(candidates, candidate)
	}

	sort.Strings(candidates)

	return candidates, nil
}

func (e *Estimator) estimateRoute(ctx context.Context, index *topology.Index, routeID string, targetStopID string, now time.Time) ([]ctdf.ArrivalEstimate, error) {
	positions, err := e.source.GetActivePositions(ctx, routeID, now.Add(-e.options.RetentionWindow))
	if err != nil {
		return nil, fmt.Errorf("fetching positions for route %s: %w", routeID, err)
	}

	var estimates []ctdf.ArrivalEstimate

	for _, position := range LatestPositions(positions, routeID, now, e.options.RetentionWindow) {
		estimate, err := e.estimateVehicle(index, routeID, targetStopID, position)
		if err != nil {
			log.Debug().
				Err(err).
				Str("route", routeID).
				Str("vehicle", position.VehicleRef).
				Str("stop", targetStopID).
				Msg("Skipping vehicle for arrival estimate")
			continue
		}

		estimates = append(estimates, estimate)
	}

	return estimates, nil
}

func (e *Estimator) estimateVehicle(index *topology.Index, routeID string, targetStopID string, position *ctdf.VehiclePosition) (ctdf.ArrivalEstimate, error) {
	if position.LastStopRef == "" {
		return ctdf.ArrivalEstimate{}, fmt.Errorf("%w: no last stop", ErrInvalidSample)
	}

	stops, err := index.Between(routeID, position.LastStopRef, targetStopID)
	if errors.Is(err, topology.ErrOutOfOrder) {
		return ctdf.ArrivalEstimate{}, fmt.Errorf("%w: %w", errNoForwardPath, err)
	} else if err != nil {
		return ctdf.ArrivalEstimate{}, fmt.Errorf("%w: %w", ErrInvalidSample, err)
	}

	speed := 0.0
	if position.Speed != nil {
		speed = *position.Speed
	}

	distance := topology.SumDistance(stops)

	return ctdf.ArrivalEstimate{
		RouteRef:          routeID,
		VehicleRef:        position.VehicleRef,
		ETAMinutes:        CalculateMinutes(distance, speed, len(stops), e.options),
		Delay:             position.Delay,
		NextStopRef:       position.NextStopRef,
		StopsAway:         len(stops) - 1,
		RemainingDistance: distance,
		LastUpdated:       position.Timestamp,
	}, nil
}

// LatestPositions drops samples that are stale or belong to another route and keeps the newest
// sample for each vehicle
func LatestPositions(positions []*ctdf.VehiclePosition, routeID string, now time.Time, retention time.Duration) []*ctdf.VehiclePosition {
	latest := map[string]*ctdf.VehiclePosition{}
	var order []string

	for _, position := range positions {
		if position == nil || position.VehicleRef == "" {
			continue
		}
		if position.RouteRef != routeID {
			continue
		}
		if !position.IsCurrent(now, retention) {
			continue
		}

		existing, seen := latest[position.VehicleRef]
		if !seen {
			order = append(order, position.VehicleRef)
		}
		if !seen || position.Timestamp.After(existing.Timestamp) {
			latest[position.VehicleRef] = position
		}
	}

	filtered := make([]*ctdf.VehiclePosition, 0, len(order))
	for _, vehicleRef := range order {
		filtered = append(filtered, latest[vehicleRef])
	}

	return filtered
}
