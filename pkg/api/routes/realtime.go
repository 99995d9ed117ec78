package routes

import (
	"context"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/gtfs"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type PositionSource interface {
	GetCurrentPositions(ctx context.Context, since time.Time) ([]*ctdf.VehiclePosition, error)
}

func GTFSRealtimeRouter(router fiber.Router, source PositionSource, retention time.Duration) {
	router.Get("/vehicle-positions", func(c *fiber.Ctx) error {
		return getVehiclePositionsFeed(c, source, retention)
	})
}

func getVehiclePositionsFeed(c *fiber.Ctx, source PositionSource, retention time.Duration) error {
	now := time.Now()

	positions, err := source.GetCurrentPositions(c.UserContext(), now.Add(-retention))
	if err != nil {
		log.Error().Err(err).Msg("Failed to load vehicle positions")
		return failure(c, fiber.StatusInternalServerError, "Failed to load vehicle positions")
	}

	message := gtfs.BuildVehiclePositionsFeed(positions, now)

	if c.Query("format") == "json" {
		body, err := gtfs.MarshalFeedJSON(message)
		if err != nil {
			return failure(c, fiber.StatusInternalServerError, "Failed to encode feed")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}

	body, err := gtfs.MarshalFeed(message)
	if err != nil {
		return failure(c, fiber.StatusInternalServerError, "Failed to encode feed")
	}

	c.Set(fiber.HeaderContentType, "application/x-protobuf")
	return c.Send(body)
}
