package dataimporter

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statsKey       = "busline/dataimporter/stats"
	runningJobsKey = "busline/dataimporter/running"
	jobStatsPrefix = "busline/dataimporter/job/"
)

type JobStats struct {
	Job          string     `json:"job"`
	LastRun      *time.Time `json:"lastRun,omitempty"`
	LastSuccess  *time.Time `json:"lastSuccess,omitempty"`
	LastDuration float64    `json:"lastDurationSeconds"`
	LastRecords  int64      `json:"lastRecords"`
	LastError    string     `json:"lastError,omitempty"`
	Runs         int64      `json:"runs"`
	Errors       int64      `json:"errors"`
}

type Status struct {
	LastRun          *time.Time  `json:"lastRun,omitempty"`
	RecordsProcessed int64       `json:"recordsProcessed"`
	Errors           int64       `json:"errors"`
	RunningJobs      []string    `json:"runningJobs"`
	Jobs             []*JobStats `json:"jobs"`
}

// StatsRecorder keeps the ingestion counters in Redis so every process reports the same status.
// A nil recorder records nothing.
type StatsRecorder struct {
	Client *redis.Client
}

func NewStatsRecorder(client *redis.Client) *StatsRecorder {
	return &StatsRecorder{Client: client}
}

func (s *StatsRecorder) enabled() bool {
	return s != nil && s.Client != nil
}

// JobStarted sets the running flag of the job, returning false when it was already set
func (s *StatsRecorder) JobStarted(ctx context.Context, job string) (bool, error) {
	if !s.enabled() {
		return true, nil
	}

	added, err := s.Client.SAdd(ctx, runningJobsKey, job).Result()
	if err != nil {
		return false, err
	}

	return added == 1, nil
}

// JobReleased clears the running flag without recording a run
func (s *StatsRecorder) JobReleased(ctx context.Context, job string) error {
	if !s.enabled() {
		return nil
	}

	return s.Client.SRem(ctx, runningJobsKey, job).Err()
}

func (s *StatsRecorder) JobFinished(ctx context.Context, job string, started time.Time, result JobResult, jobErr error) error {
	if !s.enabled() {
		return nil
	}

	finished := time.Now()
	jobKey := jobStatsPrefix + job

	pipe := s.Client.TxPipeline()
	pipe.SRem(ctx, runningJobsKey, job)
	pipe.HSet(ctx, statsKey, "lastrun", finished.Format(time.RFC3339Nano))
	pipe.HIncrBy(ctx, statsKey, "recordsprocessed", int64(result.Records))
	pipe.HIncrBy(ctx, jobKey, "runs", 1)
	pipe.HSet(ctx, jobKey,
		"lastrun", started.Format(time.RFC3339Nano),
		"lastduration", strconv.FormatFloat(finished.Sub(started).Seconds(), 'f', 3, 64),
		"lastrecords", result.Records,
	)

	if jobErr != nil {
		pipe.HIncrBy(ctx, statsKey, "errors", 1)
		pipe.HIncrBy(ctx, jobKey, "errors", 1)
		pipe.HSet(ctx, jobKey, "lasterror", jobErr.Error())
	} else {
		pipe.HSet(ctx, jobKey, "lastsuccess", finished.Format(time.RFC3339Nano), "lasterror", "")
	}

	_, err := pipe.Exec(ctx)
	return err
}

// ClearRunning drops every running flag, used when a scheduler starts so flags left by a
// crashed process do not block jobs forever
func (s *StatsRecorder) ClearRunning(ctx context.Context) error {
	if !s.enabled() {
		return nil
	}

	return s.Client.Del(ctx, runningJobsKey).Err()
}

func (s *StatsRecorder) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		RunningJobs: []string{},
		Jobs:        []*JobStats{},
	}

	if !s.enabled() {
		return status, nil
	}

	totals, err := s.Client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, err
	}
	status.LastRun = parseTime(totals["lastrun"])
	status.RecordsProcessed = parseInt(totals["recordsprocessed"])
	status.Errors = parseInt(totals["errors"])

	running, err := s.Client.SMembers(ctx, runningJobsKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(running)
	status.RunningJobs = append(status.RunningJobs, running...)

	for _, job := range Jobs {
		fields, err := s.Client.HGetAll(ctx, jobStatsPrefix+job).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}

		lastDuration, _ := strconv.ParseFloat(fields["lastduration"], 64)

		status.Jobs = append(status.Jobs, &JobStats{
			Job:          job,
			LastRun:      parseTime(fields["lastrun"]),
			LastSuccess:  parseTime(fields["lastsuccess"]),
			LastDuration: lastDuration,
			LastRecords:  parseInt(fields["lastrecords"]),
			LastError:    fields["lasterror"],
			Runs:         parseInt(fields["runs"]),
			Errors:       parseInt(fields["errors"]),
		})
	}

	return status, nil
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}

	return &parsed
}

func parseInt(value string) int64 {
	parsed, _ := strconv.ParseInt(value, 10, 64)
	return parsed
}
