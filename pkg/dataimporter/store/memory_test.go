package store

import (
	"context"
	"testing"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	memory := NewMemory()
	ctx := context.Background()

	stops := []*ctdf.Stop{{PrimaryIdentifier: "A", PrimaryName: "First"}, {PrimaryIdentifier: "B"}}

	result, err := memory.UpsertStops(ctx, stops)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Inserted: 2}, result)

	stops[0].PrimaryName = "Renamed"
	result, err = memory.UpsertStops(ctx, stops)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Updated: 2}, result)

	all, err := memory.AllStops(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Renamed", all[0].PrimaryName)
}

func TestMemoryPositions(t *testing.T) {
	memory := NewMemory()
	ctx := context.Background()
	now := time.Now()

	positions := []*ctdf.VehiclePosition{
		{VehicleRef: "V1", RouteRef: "R", Timestamp: now.Add(-time.Minute)},
		{VehicleRef: "V1", RouteRef: "R", Timestamp: now},
		{VehicleRef: "V2", RouteRef: "S", Timestamp: now.Add(-30 * time.Hour)},
	}
	require.NoError(t, memory.UpsertPositions(ctx, positions))
	require.NoError(t, memory.UpsertPositions(ctx, positions))
	assert.Equal(t, 3, memory.PositionCount())

	route, err := memory.GetActivePositions(ctx, "R", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, route, 2)
	assert.Equal(t, now, route[0].Timestamp)

	deleted, err := memory.DeletePositionsBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 2, memory.PositionCount())
}

func TestMemoryLookups(t *testing.T) {
	memory := NewMemory()
	ctx := context.Background()

	_, err := memory.GetStop(ctx, "A")
	assert.ErrorIs(t, err, ctdf.ErrNotFound)

	_, err = memory.UpsertRoutes(ctx, []*ctdf.Route{
		{PrimaryIdentifier: "R", Active: true},
		{PrimaryIdentifier: "OLD", Active: false},
	})
	require.NoError(t, err)

	active, err := memory.GetActiveRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "R", active[0].PrimaryIdentifier)

	route, err := memory.GetRoute(ctx, "OLD")
	require.NoError(t, err)
	assert.False(t, route.Active)
}
