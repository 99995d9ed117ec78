package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoute(id string, stops ...ctdf.RouteStop) *ctdf.Route {
	return &ctdf.Route{
		PrimaryIdentifier: id,
		Active:            true,
		Stops:             stops,
	}
}

func routeStop(stopRef string, sequence int, distance float64) ctdf.RouteStop {
	return ctdf.RouteStop{
		StopRef:            stopRef,
		StopName:           stopRef,
		SequenceNumber:     sequence,
		DistanceFromOrigin: distance,
	}
}

func TestBuildSortsSequence(t *testing.T) {
	index, err := Build([]*ctdf.Route{
		testRoute("R", routeStop("C", 3, 5000), routeStop("A", 1, 0), routeStop("B", 2, 2000)),
	})
	require.NoError(t, err)

	sequence, err := index.Sequence("R")
	require.NoError(t, err)

	require.Len(t, sequence, 3)
	assert.Equal(t, "A", sequence[0].StopRef)
	assert.Equal(t, "B", sequence[1].StopRef)
	assert.Equal(t, "C", sequence[2].StopRef)

	assert.Equal(t, 0.0, sequence[0].DistanceFromPrevious)
	assert.Equal(t, 2000.0, sequence[1].DistanceFromPrevious)
	assert.Equal(t, 3000.0, sequence[2].DistanceFromPrevious)
}

func TestBuildRejectsInvalidRoutes(t *testing.T) {
	tests := []struct {
		name  string
		route *ctdf.Route
	}{
		{
			name:  "duplicate sequence number",
			route: testRoute("R", routeStop("A", 1, 0), routeStop("B", 1, 100)),
		},
		{
			name:  "negative distance",
			route: testRoute("R", routeStop("A", 1, -5), routeStop("B", 2, 100)),
		},
		{
			name:  "decreasing cumulative distance",
			route: testRoute("R", routeStop("A", 1, 0), routeStop("B", 2, 500), routeStop("C", 3, 400)),
		},
		{
			name:  "repeated stop",
			route: testRoute("R", routeStop("A", 1, 0), routeStop("B", 2, 500), routeStop("A", 3, 900)),
		},
		{
			name:  "missing stop reference",
			route: testRoute("R", routeStop("", 1, 0)),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Build([]*ctdf.Route{test.route})
			assert.ErrorIs(t, err, ErrInvalidTopology)
		})
	}
}

func TestBuildSkipsInactiveRoutes(t *testing.T) {
	inactive := testRoute("OFF", routeStop("A", 1, 0), routeStop("B", 2, 100))
	inactive.Active = false

	index, err := Build([]*ctdf.Route{inactive, testRoute("ON", routeStop("A", 1, 0))})
	require.NoError(t, err)

	_, err = index.Sequence("OFF")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"ON"}, index.RoutesServing("A"))
}

func TestBetween(t *testing.T) {
	index, err := Build([]*ctdf.Route{
		testRoute("R", routeStop("A", 1, 0), routeStop("B", 2, 2000), routeStop("C", 3, 5000), routeStop("D", 5, 5600)),
	})
	require.NoError(t, err)

	stops, err := index.Between("R", "B", "D")
	require.NoError(t, err)
	require.Len(t, stops, 3)
	assert.Equal(t, "B", stops[0].StopRef)
	assert.Equal(t, "D", stops[2].StopRef)

	_, err = index.Between("R", "C", "C")
	assert.ErrorIs(t, err, ErrOutOfOrder)

	_, err = index.Between("R", "D", "A")
	assert.ErrorIs(t, err, ErrOutOfOrder)

	_, err = index.Between("R", "X", "A")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = index.Between("NOPE", "A", "B")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDistanceMatchesCumulativeDifference(t *testing.T) {
	route := testRoute("R",
		routeStop("A", 1, 120),
		routeStop("B", 2, 876.5),
		routeStop("C", 3, 876.5),
		routeStop("D", 4, 3001.25),
		routeStop("E", 6, 9999),
	)
	index, err := Build([]*ctdf.Route{route})
	require.NoError(t, err)

	for i, from := range route.Stops {
		for j, to := range route.Stops {
			distance, err := index.Distance("R", from.StopRef, to.StopRef)
			if i >= j {
				assert.True(t, errors.Is(err, ErrOutOfOrder))
				continue
			}

			require.NoError(t, err)
			assert.InDelta(t, to.DistanceFromOrigin-from.DistanceFromOrigin, distance, 1e-9)
			assert.GreaterOrEqual(t, distance, 0.0)
		}
	}
}

func TestSequenceReturnsCopy(t *testing.T) {
	index, err := Build([]*ctdf.Route{testRoute("R", routeStop("A", 1, 0), routeStop("B", 2, 100))})
	require.NoError(t, err)

	sequence, _ := index.Sequence("R")
	sequence[0].StopRef = "MUTATED"

	position, err := index.Position("R", "A")
	require.NoError(t, err)
	assert.Equal(t, 1, position.SequenceNumber)
}

func TestRoutesServing(t *testing.T) {
	index, err := Build([]*ctdf.Route{
		testRoute("Z", routeStop("A", 1, 0), routeStop("B", 2, 100)),
		testRoute("M", routeStop("B", 1, 0), routeStop("C", 2, 100)),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"M", "Z"}, index.RoutesServing("B"))
	assert.Empty(t, index.RoutesServing("UNKNOWN"))
}

func TestIncrementalDistancesNormalise(t *testing.T) {
	incremental := ctdf.NormaliseStopSequence([]ctdf.RouteStop{
		routeStop("B", 2, 2000),
		routeStop("A", 1, 0),
		routeStop("C", 3, 3000),
	}, ctdf.DistanceRepresentationIncremental)

	cumulative := []ctdf.RouteStop{routeStop("A", 1, 0), routeStop("B", 2, 2000), routeStop("C", 3, 5000)}

	fromIncremental, err := Build([]*ctdf.Route{testRoute("R", incremental...)})
	require.NoError(t, err)
	fromCumulative, err := Build([]*ctdf.Route{testRoute("R", cumulative...)})
	require.NoError(t, err)

	a, _ := fromIncremental.Sequence("R")
	b, _ := fromCumulative.Sequence("R")
	assert.Equal(t, b, a)
}

func TestHolderKeepsSnapshotOnFailedRefresh(t *testing.T) {
	holder := NewHolder(nil)
	assert.Equal(t, 0, holder.Current().RouteCount())

	err := holder.Refresh(context.Background(), func(ctx context.Context) ([]*ctdf.Route, error) {
		return []*ctdf.Route{testRoute("R", routeStop("A", 1, 0))}, nil
	})
	require.NoError(t, err)
	assert.True(t, holder.Current().HasRoute("R"))

	err = holder.Refresh(context.Background(), func(ctx context.Context) ([]*ctdf.Route, error) {
		return []*ctdf.Route{testRoute("BAD", routeStop("A", 1, 0), routeStop("B", 1, 0))}, nil
	})
	assert.ErrorIs(t, err, ErrInvalidTopology)
	assert.True(t, holder.Current().HasRoute("R"))
}

func TestHolderReportsRefreshes(t *testing.T) {
	holder := NewHolder(nil)

	var refreshes []error
	holder.OnRefresh = func(index *Index, err error) {
		refreshes = append(refreshes, err)
		if err == nil {
			assert.Equal(t, 1, index.RouteCount())
		}
	}

	require.NoError(t, holder.Refresh(context.Background(), func(ctx context.Context) ([]*ctdf.Route, error) {
		return []*ctdf.Route{testRoute("R", routeStop("A", 1, 0))}, nil
	}))
	assert.Error(t, holder.Refresh(context.Background(), func(ctx context.Context) ([]*ctdf.Route, error) {
		return nil, errors.New("database unavailable")
	}))

	require.Len(t, refreshes, 2)
	assert.NoError(t, refreshes[0])
	assert.Error(t, refreshes[1])
}
