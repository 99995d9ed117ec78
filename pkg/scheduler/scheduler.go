package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type Job struct {
	Name string
	// Standard 5 field cron expression
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler runs jobs on their cron specs. A job still running when its next tick arrives has
// that tick skipped, and a panicking job is recovered without stopping the others.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context

	running sync.Map
	errors  atomic.Int64
	skipped atomic.Int64
}

func New(ctx context.Context) *Scheduler {
	logger := cronLogger{}

	return &Scheduler{
		ctx: ctx,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

func (s *Scheduler) Add(job Job) error {
	_, err := s.cron.AddFunc(job.Spec, func() { s.runOnce(job) })
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", job.Name, err)
	}

	log.Info().Str("job", job.Name).Str("schedule", job.Spec).Msg("Scheduled job")

	return nil
}

// runOnce executes the job unless a previous run is still going
func (s *Scheduler) runOnce(job Job) {
	if _, alreadyRunning := s.running.LoadOrStore(job.Name, time.Now()); alreadyRunning {
		s.skipped.Add(1)
		log.Warn().Str("job", job.Name).Msg("Previous run still in progress, skipping")
		return
	}
	defer s.running.Delete(job.Name)

	defer func() {
		if r := recover(); r != nil {
			s.errors.Add(1)
			log.Error().Str("job", job.Name).Interface("panic", r).Msg("Scheduled job panicked")
		}
	}()

	if err := job.Run(s.ctx); err != nil {
		s.errors.Add(1)
		log.Error().Err(err).Str("job", job.Name).Msg("Scheduled job failed")
	}
}

// Trigger runs a job straight away with the same overlap guard as scheduled runs
func (s *Scheduler) Trigger(job Job) {
	s.runOnce(job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs to finish or the context to expire
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for scheduled jobs to finish")
	}
}

func (s *Scheduler) Errors() int64 {
	return s.errors.Load()
}

func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) Running() []string {
	var names []string
	s.running.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)

	return names
}

func (s *Scheduler) IsRunning(name string) bool {
	_, running := s.running.Load(name)
	return running
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
