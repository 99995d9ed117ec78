package routes

import (
	"context"
	"errors"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/gofiber/fiber/v2"
)

type StopSource interface {
	GetStop(ctx context.Context, stopID string) (*ctdf.Stop, error)
}

func StopsRouter(router fiber.Router, source StopSource) {
	router.Get("/:identifier", func(c *fiber.Ctx) error {
		return getStop(c, source)
	})
}

func getStop(c *fiber.Ctx, source StopSource) error {
	stop, err := source.GetStop(c.UserContext(), c.Params("identifier"))
	if errors.Is(err, ctdf.ErrNotFound) || (err == nil && stop == nil) {
		return failure(c, fiber.StatusNotFound, "Could not find Stop matching Stop Identifier")
	} else if err != nil {
		return failure(c, fiber.StatusInternalServerError, "Failed to load Stop")
	}

	return reduced(c, stop, "basic", "detailed")
}
