package api

import (
	"errors"
	"time"

	"github.com/busline/busline/pkg/api/routes"
	"github.com/busline/busline/pkg/api/stats"
	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/eta"
	"github.com/busline/busline/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog/log"
)

// Lookup is the read side the stop, route and realtime handlers use
type Lookup interface {
	routes.StopSource
	routes.RouteSource
	routes.PositionSource
}

type Dependencies struct {
	Estimator *eta.Estimator
	Lookup    Lookup
	Topology  eta.TopologyProvider

	Jobs   routes.JobRunner
	Status routes.StatusSource
	Stats  *stats.Collector

	// Admin routes are only registered when JWT.Secret is set
	JWT JWTConfig
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		code = fiberError.Code
		message = fiberError.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled API error")
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func NewApp(deps Dependencies) (*fiber.App, error) {
	webApp := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	group := webApp.Group("/api/v1")

	group.Get("version", routes.APIVersion)
	group.Get("health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success":   true,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	if deps.Estimator != nil {
		routes.ETARouter(group.Group("/eta"), deps.Estimator)
	}

	if deps.Lookup != nil {
		routes.StopsRouter(group.Group("/stops"), deps.Lookup)
		routes.GTFSRealtimeRouter(group.Group("/gtfs-rt"), deps.Lookup, ctdf.PositionRetentionWindow)

		if deps.Topology != nil {
			routes.RoutesRouter(group.Group("/routes"), deps.Lookup, deps.Topology)
		}
	}

	if deps.Status != nil {
		routes.StatusRouter(group.Group("/status"), deps.Status, deps.Stats, deps.Topology)
	}

	if deps.Jobs != nil && deps.JWT.Secret != "" {
		tokenMiddleware, err := EnsureValidToken(deps.JWT)
		if err != nil {
			return nil, err
		}

		routes.AdminRouter(group.Group("/admin", tokenMiddleware), deps.Jobs)
	}

	webApp.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not found")
	})

	return webApp, nil
}
