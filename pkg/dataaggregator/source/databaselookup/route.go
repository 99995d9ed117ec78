package databaselookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/dataaggregator/query"
	"github.com/busline/busline/pkg/database"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s Source) RouteQuery(ctx context.Context, routeQuery query.Route) (*ctdf.Route, error) {
	routesCollection := database.GetCollection(database.RoutesCollection)

	var route *ctdf.Route
	err := routesCollection.FindOne(ctx, routeQuery.ToBson()).Decode(&route)

	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && route == nil) {
		return nil, fmt.Errorf("route %s: %w", routeQuery.PrimaryIdentifier, ctdf.ErrNotFound)
	} else if err != nil {
		return nil, err
	}

	return route, nil
}

func (s Source) ActiveRoutesQuery(ctx context.Context, routesQuery query.ActiveRoutes) ([]*ctdf.Route, error) {
	return findRoutes(ctx, routesQuery.ToBson())
}

// RoutesByStopQuery answers from the result cache when possible as stop pages ask it on every load
func (s Source) RoutesByStopQuery(ctx context.Context, routesQuery query.RoutesByStop) ([]*ctdf.Route, error) {
	cacheItemPath := fmt.Sprintf("cachedresults/routesbystopquery/%s", routesQuery.StopRef)

	var routes []*ctdf.Route
	found, err := s.CachedResults.Get(ctx, cacheItemPath, &routes)
	if err != nil {
		log.Error().Err(err).Str("key", cacheItemPath).Msg("Failed to decode cached result")
	} else if found {
		return routes, nil
	}

	routes, err = findRoutes(ctx, routesQuery.ToBson())
	if err != nil {
		return nil, err
	}

	if err := s.CachedResults.Set(ctx, cacheItemPath, routes); err != nil {
		log.Error().Err(err).Str("key", cacheItemPath).Msg("Failed to cache result")
	}

	return routes, nil
}

func findRoutes(ctx context.Context, filter interface{}) ([]*ctdf.Route, error) {
	routesCollection := database.GetCollection(database.RoutesCollection)

	cursor, err := routesCollection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	routes := []*ctdf.Route{}
	if err := cursor.All(ctx, &routes); err != nil {
		return nil, err
	}

	return routes, nil
}
