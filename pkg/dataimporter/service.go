package dataimporter

import (
	"context"
	"time"

	"github.com/busline/busline/pkg/scheduler"
	"github.com/rs/zerolog/log"
)

// Schedules of the recurring jobs
var Schedules = []struct {
	Job  string
	Spec string
}{
	{JobFetchGPS, "*/1 * * * *"},
	{JobUpdateSchedules, "0 1 * * *"},
	{JobGenerateGTFS, "0 2 * * 0"},
	{JobCleanup, "0 3 1 * *"},
}

// NewScheduler registers every recurring job of the importer
func (i *Importer) NewScheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	s := scheduler.New(ctx)

	for _, schedule := range Schedules {
		if err := s.Add(i.scheduledJob(schedule.Job, schedule.Spec)); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (i *Importer) scheduledJob(name string, spec string) scheduler.Job {
	return scheduler.Job{
		Name: name,
		Spec: spec,
		Run: func(ctx context.Context) error {
			_, err := i.RunJob(ctx, name)
			return err
		},
	}
}

// Start prepares the importer, schedules the recurring jobs and runs a full import. It blocks
// until the context is cancelled.
func (i *Importer) Start(ctx context.Context) error {
	if err := i.Prepare(ctx); err != nil {
		return err
	}

	if err := i.Stats.ClearRunning(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear job running flags")
	}

	s, err := i.NewScheduler(ctx)
	if err != nil {
		return err
	}
	s.Start()

	log.Info().Msg("Data importer started")

	s.Trigger(i.scheduledJob(JobFullImport, ""))

	<-ctx.Done()

	log.Info().Msg("Stopping data importer")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Stop(stopCtx)

	return nil
}
