package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/busline/busline/pkg/api"
	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/database"
	"github.com/busline/busline/pkg/dataaggregator"
	"github.com/busline/busline/pkg/dataaggregator/global"
	"github.com/busline/busline/pkg/dataimporter"
	"github.com/busline/busline/pkg/dataimporter/store"
	"github.com/busline/busline/pkg/eta"
	"github.com/busline/busline/pkg/mockdata"
	"github.com/busline/busline/pkg/realtime"
	"github.com/busline/busline/pkg/redis_client"
	"github.com/busline/busline/pkg/topology"
	"github.com/joho/godotenv"
	"github.com/kr/pretty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

type etaSource interface {
	eta.DataSource
	GetActiveRoutes(ctx context.Context) ([]*ctdf.Route, error)
}

// mockSource loads a generated network into memory
func mockSource(ctx context.Context, seed int64) (etaSource, error) {
	config := mockdata.DefaultConfig()
	config.Seed = seed

	network := mockdata.Generate(config, time.Now())

	memory := store.NewMemory()
	if _, err := dataimporter.Seed(ctx, memory, network); err != nil {
		return nil, err
	}

	return memory, nil
}

func databaseSource() (etaSource, func(), error) {
	if err := database.Connect(); err != nil {
		return nil, nil, err
	}
	if err := redis_client.Connect(); err != nil {
		database.Disconnect()
		return nil, nil, err
	}

	global.Setup()

	return dataaggregator.NewETASource(nil), database.Disconnect, nil
}

func etaCommand() *cli.Command {
	return &cli.Command{
		Name:  "eta",
		Usage: "Print the arrival estimates for a stop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "stop",
				Usage:    "stop identifier",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "route",
				Usage: "only consider this route",
			},
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "use a generated network instead of the database",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: mockdata.DefaultConfig().Seed,
				Usage: "seed of the generated network",
			},
		},
		Action: func(c *cli.Context) error {
			var source etaSource
			var err error

			if c.Bool("mock") {
				source, err = mockSource(c.Context, c.Int64("seed"))
			} else {
				var closeSource func()
				source, closeSource, err = databaseSource()
				if closeSource != nil {
					defer closeSource()
				}
			}
			if err != nil {
				return err
			}

			holder := topology.NewHolder(nil)
			if err := holder.Refresh(c.Context, source.GetActiveRoutes); err != nil {
				return err
			}

			estimator := eta.NewEstimator(source, holder, eta.DefaultOptions())

			estimates, err := estimator.EstimateArrivals(c.Context, c.String("stop"), c.String("route"), time.Now())
			if errors.Is(err, eta.ErrStopNotFound) || errors.Is(err, eta.ErrRouteNotFound) {
				return cli.Exit(err.Error(), 2)
			} else if err != nil {
				return err
			}

			pretty.Println(estimates)

			return nil
		},
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	if os.Getenv("BUSLINE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("BUSLINE_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "busline",
		Description: "Single binary for busline - runs the importer, realtime consumers and web API",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			dataimporter.RegisterCLI(),
			realtime.RegisterCLI(),
			etaCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
