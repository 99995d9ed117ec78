package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/busline/busline/pkg/ctdf"
)

// Memory keeps everything in process. It backs the offline eta command and tests, and also answers
// the lookups the arrival estimator makes.
type Memory struct {
	mutex sync.RWMutex

	stops     map[string]*ctdf.Stop
	routes    map[string]*ctdf.Route
	vehicles  map[string]*ctdf.Vehicle
	positions map[string]*ctdf.VehiclePosition
}

func NewMemory() *Memory {
	return &Memory{
		stops:     map[string]*ctdf.Stop{},
		routes:    map[string]*ctdf.Route{},
		vehicles:  map[string]*ctdf.Vehicle{},
		positions: map[string]*ctdf.VehiclePosition{},
	}
}

// clone is shallow, slices stay shared with the caller
func clone[T any](record *T) *T {
	cloned := *record
	return &cloned
}

func (m *Memory) UpsertStops(ctx context.Context, stops []*ctdf.Stop) (UpsertResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var result UpsertResult
	for _, stop := range stops {
		if existing, exists := m.stops[stop.PrimaryIdentifier]; exists {
			result.Updated++
			stored := clone(stop)
			stored.CreationDateTime = existing.CreationDateTime
			m.stops[stop.PrimaryIdentifier] = stored
		} else {
			result.Inserted++
			m.stops[stop.PrimaryIdentifier] = clone(stop)
		}
	}

	return result, nil
}

func (m *Memory) UpsertRoutes(ctx context.Context, routes []*ctdf.Route) (UpsertResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var result UpsertResult
	for _, route := range routes {
		if _, exists := m.routes[route.PrimaryIdentifier]; exists {
			result.Updated++
		} else {
			result.Inserted++
		}
		m.routes[route.PrimaryIdentifier] = clone(route)
	}

	return result, nil
}

func (m *Memory) UpsertVehicles(ctx context.Context, vehicles []*ctdf.Vehicle) (UpsertResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var result UpsertResult
	for _, vehicle := range vehicles {
		if _, exists := m.vehicles[vehicle.PrimaryIdentifier]; exists {
			result.Updated++
		} else {
			result.Inserted++
		}
		m.vehicles[vehicle.PrimaryIdentifier] = clone(vehicle)
	}

	return result, nil
}

func positionKey(position *ctdf.VehiclePosition) string {
	return fmt.Sprintf("%s/%d", position.VehicleRef, position.Timestamp.UnixNano())
}

func (m *Memory) UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, position := range positions {
		m.positions[positionKey(position)] = clone(position)
	}

	return nil
}

func (m *Memory) DeletePositionsBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var deleted int64
	for key, position := range m.positions {
		if position.Timestamp.Before(before) {
			delete(m.positions, key)
			deleted++
		}
	}

	return deleted, nil
}

func (m *Memory) AllStops(ctx context.Context) ([]*ctdf.Stop, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stops := make([]*ctdf.Stop, 0, len(m.stops))
	for _, stop := range m.stops {
		stops = append(stops, clone(stop))
	}
	sort.Slice(stops, func(i, j int) bool {
		return stops[i].PrimaryIdentifier < stops[j].PrimaryIdentifier
	})

	return stops, nil
}

func (m *Memory) AllRoutes(ctx context.Context) ([]*ctdf.Route, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	routes := make([]*ctdf.Route, 0, len(m.routes))
	for _, route := range m.routes {
		routes = append(routes, clone(route))
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].PrimaryIdentifier < routes[j].PrimaryIdentifier
	})

	return routes, nil
}

func (m *Memory) GetStop(ctx context.Context, stopID string) (*ctdf.Stop, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stop, exists := m.stops[stopID]
	if !exists {
		return nil, fmt.Errorf("stop %s: %w", stopID, ctdf.ErrNotFound)
	}

	return clone(stop), nil
}

func (m *Memory) GetRoute(ctx context.Context, routeID string) (*ctdf.Route, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	route, exists := m.routes[routeID]
	if !exists {
		return nil, fmt.Errorf("route %s: %w", routeID, ctdf.ErrNotFound)
	}

	return clone(route), nil
}

// GetActiveRoutes is the loader for the route topology index
func (m *Memory) GetActiveRoutes(ctx context.Context) ([]*ctdf.Route, error) {
	routes, err := m.AllRoutes(ctx)
	if err != nil {
		return nil, err
	}

	active := routes[:0]
	for _, route := range routes {
		if route.Active {
			active = append(active, route)
		}
	}

	return active, nil
}

func (m *Memory) GetActivePositions(ctx context.Context, routeID string, since time.Time) ([]*ctdf.VehiclePosition, error) {
	return m.positionsSince(routeID, since), nil
}

func (m *Memory) GetCurrentPositions(ctx context.Context, since time.Time) ([]*ctdf.VehiclePosition, error) {
	return m.positionsSince("", since), nil
}

func (m *Memory) positionsSince(routeID string, since time.Time) []*ctdf.VehiclePosition {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	positions := []*ctdf.VehiclePosition{}
	for _, position := range m.positions {
		if routeID != "" && position.RouteRef != routeID {
			continue
		}
		if position.Timestamp.Before(since) {
			continue
		}
		positions = append(positions, clone(position))
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Timestamp.After(positions[j].Timestamp)
	})

	return positions
}

func (m *Memory) PositionCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.positions)
}
