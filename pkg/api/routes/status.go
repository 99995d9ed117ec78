package routes

import (
	"context"

	"github.com/busline/busline/pkg/api/stats"
	"github.com/busline/busline/pkg/dataimporter"
	"github.com/busline/busline/pkg/eta"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type StatusSource interface {
	Status(ctx context.Context) (*dataimporter.Status, error)
}

type topologyStatus struct {
	Routes  int    `json:"routes"`
	BuiltAt string `json:"builtAt,omitempty"`
}

type systemStatus struct {
	Ingestion *dataimporter.Status `json:"ingestion"`
	Records   *stats.RecordsStats  `json:"records,omitempty"`
	Topology  topologyStatus       `json:"topology"`
}

func StatusRouter(router fiber.Router, source StatusSource, collector *stats.Collector, topologyProvider eta.TopologyProvider) {
	router.Get("/", func(c *fiber.Ctx) error {
		ingestion, err := source.Status(c.UserContext())
		if err != nil {
			log.Error().Err(err).Msg("Failed to read ingestion status")
			return failure(c, fiber.StatusInternalServerError, "Failed to read ingestion status")
		}

		status := systemStatus{
			Ingestion: ingestion,
		}

		if collector != nil {
			records := collector.Current()
			status.Records = &records
		}

		if topologyProvider != nil {
			index := topologyProvider.Current()
			status.Topology.Routes = index.RouteCount()
			if !index.BuiltAt().IsZero() {
				status.Topology.BuiltAt = index.BuiltAt().UTC().Format("2006-01-02T15:04:05Z07:00")
			}
		}

		return success(c, status)
	})
}
