package databaselookup

import (
	"context"
	"errors"
	"reflect"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/dataaggregator/query"
	"github.com/busline/busline/pkg/dataaggregator/source/cachedresults"
)

type Source struct {
	CachedResults *cachedresults.Cache
}

func (s *Source) Setup() {
	s.CachedResults = &cachedresults.Cache{}
	s.CachedResults.Setup()
}

func (s Source) GetName() string {
	return "Database Lookup"
}

func (s Source) Supports() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(ctdf.Stop{}),
		reflect.TypeOf(ctdf.Route{}),
		reflect.TypeOf(ctdf.Vehicle{}),
		reflect.TypeOf([]*ctdf.Route{}),
		reflect.TypeOf([]*ctdf.VehiclePosition{}),
	}
}

func (s Source) Lookup(ctx context.Context, q any) (interface{}, error) {
	switch q := q.(type) {
	case query.Stop:
		return s.StopQuery(ctx, q)
	case query.Route:
		return s.RouteQuery(ctx, q)
	case query.RoutesByStop:
		return s.RoutesByStopQuery(ctx, q)
	case query.ActiveRoutes:
		return s.ActiveRoutesQuery(ctx, q)
	case query.Vehicle:
		return s.VehicleQuery(ctx, q)
	case query.VehiclePositions:
		return s.VehiclePositionsQuery(ctx, q)
	}

	return nil, errors.New("unable to lookup")
}
