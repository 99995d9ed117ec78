package dataimporter

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/busline/busline/pkg/elastic_client"
	"github.com/busline/busline/pkg/metrics"
	"github.com/rs/zerolog/log"
)

const (
	JobImportStops     = "import-stops"
	JobImportRoutes    = "import-routes"
	JobImportBuses     = "import-buses"
	JobFetchGPS        = "fetch-gps"
	JobUpdateSchedules = "update-schedules"
	JobGenerateGTFS    = "generate-gtfs"
	JobCleanup         = "cleanup"
	JobFullImport      = "full-import"
)

var Jobs = []string{
	JobImportStops,
	JobImportRoutes,
	JobImportBuses,
	JobFetchGPS,
	JobUpdateSchedules,
	JobGenerateGTFS,
	JobCleanup,
	JobFullImport,
}

var ErrJobRunning = errors.New("job already running")

const ingestionEventsIndex = "busline-ingestion-events"

type IngestionEvent struct {
	Job       string
	Timestamp time.Time
	Duration  float64
	Records   int
	Invalid   int
	Success   bool
	Error     string `json:",omitempty"`
}

func (i *Importer) job(name string) (func(context.Context) (JobResult, error), error) {
	switch name {
	case JobImportStops:
		return i.ImportStops, nil
	case JobImportRoutes:
		return i.ImportRoutes, nil
	case JobImportBuses:
		return i.ImportBuses, nil
	case JobFetchGPS:
		return i.FetchPositions, nil
	case JobUpdateSchedules:
		return i.UpdateSchedules, nil
	case JobGenerateGTFS:
		return i.GenerateStaticExport, nil
	case JobCleanup:
		return i.Cleanup, nil
	case JobFullImport:
		return i.FullImport, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
}

// ValidJob reports whether RunJob knows the job name
func ValidJob(name string) bool {
	_, err := (&Importer{}).job(name)
	return err == nil
}

var ErrJobPanicked = errors.New("job panicked")

// RunJob runs a named job, guarding against another run of the same job and recording the outcome
// in the stats, metrics and ingestion event index. A panicking job is recovered and reported as
// a failed run.
func (i *Importer) RunJob(ctx context.Context, name string) (result JobResult, jobErr error) {
	run, err := i.job(name)
	if err != nil {
		return JobResult{}, err
	}

	started, err := i.Stats.JobStarted(ctx, name)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("Failed to set job running flag")
	} else if !started {
		metrics.JobRuns.WithLabelValues(name, "skipped").Inc()
		log.Warn().Str("job", name).Msg("Job already running, skipping")
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}

	startTime := time.Now()

	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error().Str("job", name).Interface("panic", recovered).Bytes("stack", debug.Stack()).Msg("Job panicked")
			jobErr = fmt.Errorf("%w: %s: %v", ErrJobPanicked, name, recovered)
		}

		// Recording must happen even when the job context was cancelled
		i.recordRun(context.WithoutCancel(ctx), name, startTime, result, jobErr)
	}()

	return run(ctx)
}

func (i *Importer) recordRun(ctx context.Context, name string, startTime time.Time, result JobResult, jobErr error) {
	duration := time.Since(startTime)

	if err := i.Stats.JobFinished(ctx, name, startTime, result, jobErr); err != nil {
		log.Error().Err(err).Str("job", name).Msg("Failed to record job stats")
	}

	status := "success"
	if jobErr != nil {
		status = "failure"
	}
	metrics.JobRuns.WithLabelValues(name, status).Inc()
	metrics.JobDuration.WithLabelValues(name).Observe(duration.Seconds())

	event := IngestionEvent{
		Job:       name,
		Timestamp: startTime,
		Duration:  duration.Seconds(),
		Records:   result.Records,
		Invalid:   result.Invalid,
		Success:   jobErr == nil,
	}
	if jobErr != nil {
		event.Error = jobErr.Error()
	}
	if err := elastic_client.IndexDocument(fmt.Sprintf("%s-%s", ingestionEventsIndex, startTime.Format("2006-01")), event); err != nil {
		log.Error().Err(err).Str("job", name).Msg("Failed to index ingestion event")
	}

	if jobErr != nil {
		log.Error().Err(jobErr).Str("job", name).Str("duration", duration.String()).Msg("Job failed")
	} else {
		log.Info().Str("job", name).Str("duration", duration.String()).Int("records", result.Records).Msg("Job completed")
	}
}

// runStep holds the running flag of a job for one step of a composite job, so a scheduled run of
// the same job cannot overlap it. A step whose job is already running is skipped.
func (i *Importer) runStep(ctx context.Context, name string, run func(context.Context) (JobResult, error)) (JobResult, error) {
	started, err := i.Stats.JobStarted(ctx, name)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("Failed to set job running flag")
	} else if !started {
		log.Warn().Str("job", name).Msg("Job already running, skipping step")
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobRunning, name)
	} else {
		defer func() {
			if err := i.Stats.JobReleased(context.WithoutCancel(ctx), name); err != nil {
				log.Error().Err(err).Str("job", name).Msg("Failed to clear job running flag")
			}
		}()
	}

	return run(ctx)
}
