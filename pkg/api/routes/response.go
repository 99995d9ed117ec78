package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
)

func success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// reduced renders a record through its sheriff groups
func reduced(c *fiber.Ctx, record interface{}, groups ...string) error {
	output, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, record)
	if err != nil {
		return failure(c, fiber.StatusInternalServerError, "Sheriff could not reduce record")
	}

	return success(c, output)
}
