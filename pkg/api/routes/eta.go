package routes

import (
	"errors"
	"time"

	"github.com/busline/busline/pkg/eta"
	"github.com/busline/busline/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func ETARouter(router fiber.Router, estimator *eta.Estimator) {
	handler := func(c *fiber.Ctx) error {
		return getArrivalEstimates(c, estimator)
	}

	router.Get("/:stopId", handler)
	router.Get("/:stopId/:routeId", handler)
}

func getArrivalEstimates(c *fiber.Ctx, estimator *eta.Estimator) error {
	stopID := c.Params("stopId")
	routeID := c.Params("routeId")

	startTime := time.Now()
	estimates, err := estimator.EstimateArrivals(c.UserContext(), stopID, routeID, startTime)
	metrics.ETADuration.Observe(time.Since(startTime).Seconds())

	switch {
	case errors.Is(err, eta.ErrStopNotFound):
		metrics.ETARequests.WithLabelValues("not_found").Inc()
		return failure(c, fiber.StatusNotFound, "Stop not found")
	case errors.Is(err, eta.ErrRouteNotFound):
		metrics.ETARequests.WithLabelValues("not_found").Inc()
		return failure(c, fiber.StatusNotFound, "Route not found")
	case err != nil:
		metrics.ETARequests.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("stop", stopID).Str("route", routeID).Msg("Failed to calculate arrival estimates")
		return failure(c, fiber.StatusInternalServerError, "Failed to calculate ETA")
	}

	metrics.ETARequests.WithLabelValues("ok").Inc()
	metrics.ETAEstimates.Observe(float64(len(estimates)))

	return success(c, estimates)
}
