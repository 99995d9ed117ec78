package api

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/busline/busline/pkg/api/stats"
	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/database"
	"github.com/busline/busline/pkg/dataaggregator"
	"github.com/busline/busline/pkg/dataaggregator/global"
	"github.com/busline/busline/pkg/dataimporter"
	"github.com/busline/busline/pkg/dataimporter/store"
	"github.com/busline/busline/pkg/elastic_client"
	"github.com/busline/busline/pkg/eta"
	"github.com/busline/busline/pkg/metrics"
	"github.com/busline/busline/pkg/redis_client"
	"github.com/busline/busline/pkg/topology"
	"github.com/busline/busline/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func newTopologyHolder(ctx context.Context, source *dataaggregator.ETASource) *topology.Holder {
	holder := topology.NewHolder(nil)
	holder.OnRefresh = func(index *topology.Index, err error) {
		if err != nil {
			metrics.TopologyRefreshErrors.Inc()
			return
		}
		metrics.TopologyRoutes.Set(float64(index.RouteCount()))
	}

	if err := holder.Refresh(ctx, source.GetActiveRoutes); err != nil {
		log.Error().Err(err).Msg("Initial topology build failed, starting with an empty topology")
	}

	return holder
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the arrival estimate web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					defer database.Disconnect()
					if err := redis_client.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						log.Error().Err(err).Msg("Continuing without Elasticsearch")
					}

					global.Setup()

					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					env := util.GetEnvironmentVariables()

					source := dataaggregator.NewETASource(nil)
					holder := newTopologyHolder(ctx, source)
					go holder.RunRefresher(ctx, util.GetEnvironmentDuration("BUSLINE_TOPOLOGY_REFRESH", 5*time.Minute), source.GetActiveRoutes)

					estimator := eta.NewEstimator(source, holder, eta.Options{
						RetentionWindow: util.GetEnvironmentDuration("BUSLINE_ETA_RETENTION", ctdf.PositionRetentionWindow),
					})

					importer := dataimporter.NewImporterFromEnvironment(store.MongoStore{})
					importer.Stats = dataimporter.NewStatsRecorder(redis_client.Client)

					collector := stats.NewCollector(nil)
					go collector.Run(ctx, time.Minute)

					deps := Dependencies{
						Estimator: estimator,
						Lookup:    source,
						Topology:  holder,
						Jobs:      importer,
						Status:    importer.Stats,
						Stats:     collector,
						JWT: JWTConfig{
							Secret:   env["BUSLINE_JWT_SECRET"],
							Issuer:   env["BUSLINE_JWT_ISSUER"],
							Audience: env["BUSLINE_JWT_AUDIENCE"],
						},
					}

					webApp, err := NewApp(deps)
					if err != nil {
						return err
					}

					go func() {
						<-ctx.Done()
						if err := webApp.ShutdownWithTimeout(10 * time.Second); err != nil {
							log.Error().Err(err).Msg("Web API shutdown failed")
						}
					}()

					log.Info().Str("listen", c.String("listen")).Msg("Starting web API")

					return webApp.Listen(c.String("listen"))
				},
			},
		},
	}
}
