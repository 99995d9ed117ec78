package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// quietPaths are polled by probes and scrapers and only logged at debug level
var quietPaths = []string{"/metrics", "/api/v1/health"}

func isQuietPath(path string) bool {
	for _, quietPath := range quietPaths {
		if strings.HasPrefix(path, quietPath) {
			return true
		}
	}

	return false
}

func NewLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()
		err := c.Next()

		msg := "HTTP Request"
		if err != nil {
			msg = err.Error()
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				c.Status(fiber.StatusInternalServerError)
			}
		}

		code := c.Response().StatusCode()

		ipAddress := c.IP()
		if forwardedFor := c.Get(fiber.HeaderXForwardedFor); forwardedFor != "" {
			ipAddress = strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		}

		var event *zerolog.Event
		switch {
		case code >= fiber.StatusInternalServerError:
			event = log.Error()
		case code >= fiber.StatusBadRequest:
			event = log.Warn()
		case isQuietPath(c.Path()):
			event = log.Debug()
		default:
			event = log.Info()
		}

		event.
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", ipAddress).
			Dur("latency", time.Since(startTime)).
			Int("bytes", len(c.Response().Body())).
			Str("user-agent", c.Get(fiber.HeaderUserAgent)).
			Str("request-id", c.Get(fiber.HeaderXRequestID)).
			Msg(msg)

		return nil
	}
}
