package dataimporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/busline/busline/pkg/database"
	"github.com/busline/busline/pkg/dataimporter/store"
	"github.com/busline/busline/pkg/elastic_client"
	"github.com/busline/busline/pkg/mockdata"
	"github.com/busline/busline/pkg/redis_client"
	"github.com/busline/busline/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func connect() (*Importer, error) {
	if err := database.Connect(); err != nil {
		return nil, err
	}
	if err := redis_client.Connect(); err != nil {
		return nil, err
	}
	if err := elastic_client.Connect(false); err != nil {
		log.Error().Err(err).Msg("Continuing without Elasticsearch")
	}

	importer := NewImporterFromEnvironment(store.MongoStore{})
	importer.Stats = NewStatsRecorder(redis_client.Client)

	env := util.GetEnvironmentVariables()
	if PositionsDestination(env["BUSLINE_POSITIONS_DESTINATION"]) == PositionsDestinationQueue {
		sink, err := NewQueueSink()
		if err != nil {
			return nil, err
		}
		importer.Positions = sink

		log.Info().Msg("Publishing vehicle positions to the realtime queue")
	}

	return importer, nil
}

func disconnect() {
	elastic_client.WaitUntilQueueEmpty()
	database.Disconnect()
}

func jobCommand(name string, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			importer, err := connect()
			if err != nil {
				return err
			}
			defer disconnect()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_, err = importer.RunJob(ctx, name)
			return err
		},
	}
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "data-importer",
		Usage: "Import the upstream transit feed into the database",
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: "run the importer with its scheduled jobs",
				Action: func(c *cli.Context) error {
					importer, err := connect()
					if err != nil {
						return err
					}
					defer disconnect()

					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					return importer.Start(ctx)
				},
			},
			jobCommand(JobImportStops, "import bus stops"),
			jobCommand(JobImportRoutes, "import bus routes"),
			jobCommand(JobImportBuses, "import buses"),
			jobCommand(JobFetchGPS, "fetch realtime vehicle positions"),
			jobCommand(JobUpdateSchedules, "update route schedules"),
			jobCommand(JobGenerateGTFS, "generate the GTFS static feed"),
			jobCommand(JobCleanup, "remove old positions and files"),
			jobCommand(JobFullImport, "import everything and generate the GTFS feed"),
			{
				Name:  "status",
				Usage: "print the ingestion statistics",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					status, err := NewStatsRecorder(redis_client.Client).Status(c.Context)
					if err != nil {
						return err
					}

					output, err := json.MarshalIndent(status, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(os.Stdout, string(output))

					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "load a seed file or generated mock data into the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "YAML seed file, mock data is generated when not set",
					},
					&cli.IntFlag{
						Name:  "stops",
						Value: mockdata.DefaultConfig().Stops,
					},
					&cli.IntFlag{
						Name:  "routes",
						Value: mockdata.DefaultConfig().Routes,
					},
					&cli.IntFlag{
						Name:  "vehicles-per-route",
						Value: mockdata.DefaultConfig().VehiclesPerRoute,
					},
					&cli.Int64Flag{
						Name:  "seed",
						Value: mockdata.DefaultConfig().Seed,
					},
					&cli.StringFlag{
						Name:  "write",
						Usage: "also write the network to this YAML file",
					},
				},
				Action: func(c *cli.Context) error {
					var network *mockdata.Network

					if c.String("file") != "" {
						var err error
						network, err = mockdata.LoadFile(c.String("file"))
						if err != nil {
							return err
						}
					} else {
						network = mockdata.Generate(mockdata.Config{
							Stops:            c.Int("stops"),
							Routes:           c.Int("routes"),
							VehiclesPerRoute: c.Int("vehicles-per-route"),
							Seed:             c.Int64("seed"),
						}, time.Now())
					}

					if c.String("write") != "" {
						if err := network.WriteFile(c.String("write")); err != nil {
							return err
						}
					}

					if err := database.Connect(); err != nil {
						return err
					}
					defer database.Disconnect()

					ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
					defer cancel()

					_, err := Seed(ctx, store.MongoStore{}, network)
					return err
				},
			},
		},
	}
}
