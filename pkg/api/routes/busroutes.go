package routes

import (
	"context"
	"errors"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/eta"
	"github.com/busline/busline/pkg/topology"
	"github.com/gofiber/fiber/v2"
)

type RouteSource interface {
	GetRoute(ctx context.Context, routeID string) (*ctdf.Route, error)
}

type routeTopology struct {
	RouteRef string                  `json:"routeId"`
	BuiltAt  string                  `json:"builtAt"`
	Stops    []topology.StopPosition `json:"stops"`
}

func RoutesRouter(router fiber.Router, source RouteSource, topologyProvider eta.TopologyProvider) {
	router.Get("/:identifier", func(c *fiber.Ctx) error {
		return getRoute(c, source)
	})
	router.Get("/:identifier/topology", func(c *fiber.Ctx) error {
		return getRouteTopology(c, topologyProvider)
	})
}

func getRoute(c *fiber.Ctx, source RouteSource) error {
	route, err := source.GetRoute(c.UserContext(), c.Params("identifier"))
	if errors.Is(err, ctdf.ErrNotFound) || (err == nil && route == nil) {
		return failure(c, fiber.StatusNotFound, "Could not find Route matching Route Identifier")
	} else if err != nil {
		return failure(c, fiber.StatusInternalServerError, "Failed to load Route")
	}

	return reduced(c, route, "basic")
}

func getRouteTopology(c *fiber.Ctx, topologyProvider eta.TopologyProvider) error {
	index := topologyProvider.Current()
	routeID := c.Params("identifier")

	stops, err := index.Sequence(routeID)
	if errors.Is(err, topology.ErrNotFound) {
		return failure(c, fiber.StatusNotFound, "Route is not in the current topology")
	} else if err != nil {
		return failure(c, fiber.StatusInternalServerError, "Failed to load topology")
	}

	return success(c, routeTopology{
		RouteRef: routeID,
		BuiltAt:  index.BuiltAt().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Stops:    stops,
	})
}
