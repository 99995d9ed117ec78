package routes

import (
	"context"

	"github.com/busline/busline/pkg/dataimporter"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type JobRunner interface {
	RunJob(ctx context.Context, name string) (dataimporter.JobResult, error)
}

// AdminRouter must be mounted behind the token middleware
func AdminRouter(router fiber.Router, runner JobRunner) {
	router.Get("/jobs", func(c *fiber.Ctx) error {
		return success(c, dataimporter.Jobs)
	})

	router.Post("/jobs/:job", func(c *fiber.Ctx) error {
		return triggerJob(c, runner)
	})
}

func triggerJob(c *fiber.Ctx, runner JobRunner) error {
	job := c.Params("job")

	if !dataimporter.ValidJob(job) {
		return failure(c, fiber.StatusNotFound, "Unknown job")
	}

	subject, _ := c.Locals("admin_subject").(string)
	log.Info().Str("job", job).Str("subject", subject).Msg("Job triggered through admin API")

	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error().Str("job", job).Interface("panic", recovered).Msg("Triggered job panicked")
			}
		}()

		if _, err := runner.RunJob(context.Background(), job); err != nil {
			log.Error().Err(err).Str("job", job).Msg("Triggered job failed")
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"job":    job,
			"status": "started",
		},
	})
}
