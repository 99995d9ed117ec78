package realtime

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/busline/busline/pkg/database"
	"github.com/busline/busline/pkg/dataimporter/store"
	"github.com/busline/busline/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "realtime",
		Usage: "Consume queued vehicle positions into the database",
		Subcommands: []*cli.Command{
			{
				Name:  "consumer",
				Usage: "run the vehicle position queue consumers",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					defer database.Disconnect()
					if err := redis_client.Connect(); err != nil {
						return err
					}

					if err := StartConsumers(store.MongoStore{}); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the vehicle position queue",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Value: 5 * time.Minute,
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					RunCleaner(ctx, redis_client.QueueConnection, c.Duration("interval"))

					return nil
				},
			},
		},
	}
}
