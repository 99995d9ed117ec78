package topology

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"golang.org/x/exp/slices"
)

// StopPosition is a stop placed on a route with its distance resolved
type StopPosition struct {
	StopRef  string
	StopName string

	SequenceNumber int

	DistanceFromOrigin   float64 // metres
	DistanceFromPrevious float64 // metres, 0 for the first stop
}

type routeTopology struct {
	stops     []StopPosition
	stopIndex map[string]int
}

// Index is an immutable snapshot of route stop sequences. It is never modified after Build
// returns, so it can be shared between goroutines without locking.
type Index struct {
	routes     map[string]*routeTopology
	stopRoutes map[string][]string

	builtAt time.Time
}

func emptyIndex() *Index {
	return &Index{
		routes:     map[string]*routeTopology{},
		stopRoutes: map[string][]string{},
	}
}

// Build creates an Index from persisted routes. Inactive routes are left out. Any route with
// an invalid stop sequence fails the whole build.
func Build(routes []*ctdf.Route) (*Index, error) {
	index := emptyIndex()
	index.builtAt = time.Now()

	for _, route := range routes {
		if route == nil || !route.Active {
			continue
		}

		if _, exists := index.routes[route.PrimaryIdentifier]; exists {
			return nil, fmt.Errorf("%w: route %s defined more than once", ErrInvalidTopology, route.PrimaryIdentifier)
		}

		topology, err := buildRoute(route)
		if err != nil {
			return nil, err
		}

		index.routes[route.PrimaryIdentifier] = topology

		for _, stop := range topology.stops {
			index.stopRoutes[stop.StopRef] = append(index.stopRoutes[stop.StopRef], route.PrimaryIdentifier)
		}
	}

	for stopRef := range index.stopRoutes {
		sort.Strings(index.stopRoutes[stopRef])
	}

	return index, nil
}

func buildRoute(route *ctdf.Route) (*routeTopology, error) {
	stops := make([]ctdf.RouteStop, len(route.Stops))
	copy(stops, route.Stops)

	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].SequenceNumber < stops[j].SequenceNumber
	})

	topology := &routeTopology{
		stops:     make([]StopPosition, 0, len(stops)),
		stopIndex: make(map[string]int, len(stops)),
	}

	for i, stop := range stops {
		if stop.StopRef == "" {
			return nil, fmt.Errorf("%w: route %s has a stop without a reference", ErrInvalidTopology, route.PrimaryIdentifier)
		}
		if math.IsNaN(stop.DistanceFromOrigin) || math.IsInf(stop.DistanceFromOrigin, 0) || stop.DistanceFromOrigin < 0 {
			return nil, fmt.Errorf("%w: route %s stop %s has invalid distance %f", ErrInvalidTopology, route.PrimaryIdentifier, stop.StopRef, stop.DistanceFromOrigin)
		}
		if _, exists := topology.stopIndex[stop.StopRef]; exists {
			return nil, fmt.Errorf("%w: route %s visits stop %s more than once", ErrInvalidTopology, route.PrimaryIdentifier, stop.StopRef)
		}

		position := StopPosition{
			StopRef:            stop.StopRef,
			StopName:           stop.StopName,
			SequenceNumber:     stop.SequenceNumber,
			DistanceFromOrigin: stop.DistanceFromOrigin,
		}

		if i > 0 {
			previous := topology.stops[i-1]

			if previous.SequenceNumber == stop.SequenceNumber {
				return nil, fmt.Errorf("%w: route %s has duplicate sequence number %d", ErrInvalidTopology, route.PrimaryIdentifier, stop.SequenceNumber)
			}
			if stop.DistanceFromOrigin < previous.DistanceFromOrigin {
				return nil, fmt.Errorf("%w: route %s distance decreases at stop %s", ErrInvalidTopology, route.PrimaryIdentifier, stop.StopRef)
			}

			position.DistanceFromPrevious = stop.DistanceFromOrigin - previous.DistanceFromOrigin
		}

		topology.stopIndex[stop.StopRef] = len(topology.stops)
		topology.stops = append(topology.stops, position)
	}

	return topology, nil
}

func (i *Index) route(routeID string) (*routeTopology, error) {
	topology, exists := i.routes[routeID]
	if !exists {
		return nil, fmt.Errorf("%w: route %s", ErrNotFound, routeID)
	}

	return topology, nil
}

func (i *Index) HasRoute(routeID string) bool {
	_, exists := i.routes[routeID]
	return exists
}

func (i *Index) RouteCount() int {
	return len(i.routes)
}

func (i *Index) BuiltAt() time.Time {
	return i.builtAt
}

// Sequence returns a copy of the ordered stops of a route
func (i *Index) Sequence(routeID string) ([]StopPosition, error) {
	topology, err := i.route(routeID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(topology.stops), nil
}

// Position resolves a single stop on a route
func (i *Index) Position(routeID string, stopID string) (StopPosition, error) {
	topology, err := i.route(routeID)
	if err != nil {
		return StopPosition{}, err
	}

	stopIndex, exists := topology.stopIndex[stopID]
	if !exists {
		return StopPosition{}, fmt.Errorf("%w: stop %s on route %s", ErrNotFound, stopID, routeID)
	}

	return topology.stops[stopIndex], nil
}

// Between returns the stops from fromStopID to toStopID inclusive in direction of travel.
// ErrOutOfOrder is returned when the destination is not strictly after the origin.
func (i *Index) Between(routeID string, fromStopID string, toStopID string) ([]StopPosition, error) {
	topology, err := i.route(routeID)
	if err != nil {
		return nil, err
	}

	fromIndex, exists := topology.stopIndex[fromStopID]
	if !exists {
		return nil, fmt.Errorf("%w: stop %s on route %s", ErrNotFound, fromStopID, routeID)
	}
	toIndex, exists := topology.stopIndex[toStopID]
	if !exists {
		return nil, fmt.Errorf("%w: stop %s on route %s", ErrNotFound, toStopID, routeID)
	}

	if fromIndex >= toIndex {
		return nil, fmt.Errorf("%w: %s is not before %s on route %s", ErrOutOfOrder, fromStopID, toStopID, routeID)
	}

	return slices.Clone(topology.stops[fromIndex : toIndex+1]), nil
}

// Distance returns the distance in metres travelled along the route between two stops
func (i *Index) Distance(routeID string, fromStopID string, toStopID string) (float64, error) {
	stops, err := i.Between(routeID, fromStopID, toStopID)
	if err != nil {
		return 0, err
	}

	return SumDistance(stops), nil
}

// RoutesServing returns the sorted identifiers of every route that calls at the stop
func (i *Index) RoutesServing(stopID string) []string {
	return slices.Clone(i.stopRoutes[stopID])
}

// SumDistance adds up the inter-stop distances of a sub-sequence, ignoring the distance
// leading into its first stop
func SumDistance(stops []StopPosition) float64 {
	total := 0.0
	for i := 1; i < len(stops); i++ {
		total += stops[i].DistanceFromPrevious
	}

	return total
}
