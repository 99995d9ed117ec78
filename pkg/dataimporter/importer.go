package dataimporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/dataimporter/store"
	"github.com/busline/busline/pkg/gtfs"
	"github.com/busline/busline/pkg/metrics"
	"github.com/busline/busline/pkg/upstream"
	"github.com/busline/busline/pkg/util"
	"github.com/rs/zerolog/log"
)

type PositionsDestination string

const (
	PositionsDestinationDatabase PositionsDestination = "database"
	PositionsDestinationQueue    PositionsDestination = "queue"
)

const (
	rawDataRetention    = 7 * 24 * time.Hour
	gtfsExportRetention = 30 * 24 * time.Hour
)

// PositionSink receives fetched vehicle positions, either the store itself or the realtime queue
type PositionSink interface {
	UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error
}

// JobResult summarises a single ingestion step
type JobResult struct {
	Records  int   `json:"records"`
	Invalid  int   `json:"invalid"`
	Inserted int64 `json:"inserted"`
	Updated  int64 `json:"updated"`
}

func (r *JobResult) add(other JobResult) {
	r.Records += other.Records
	r.Invalid += other.Invalid
	r.Inserted += other.Inserted
	r.Updated += other.Updated
}

type Importer struct {
	Upstream  *upstream.Client
	Store     store.Store
	Positions PositionSink
	Stats     *StatsRecorder

	RawDataDir  string
	GTFSDataDir string
	Agency      gtfs.AgencyConfig

	DistanceRepresentation ctdf.DistanceRepresentation

	Now func() time.Time
}

// NewImporterFromEnvironment builds an importer writing to the given store. The positions sink
// defaults to the same store.
func NewImporterFromEnvironment(storage store.Store) *Importer {
	env := util.GetEnvironmentVariables()

	importer := &Importer{
		Upstream:               upstream.NewClientFromEnvironment(),
		Store:                  storage,
		Positions:              storage,
		RawDataDir:             "./data/raw",
		GTFSDataDir:            "./data/gtfs",
		Agency:                 gtfs.AgencyConfigFromEnvironment(),
		DistanceRepresentation: ctdf.DistanceRepresentationCumulative,
		Now:                    time.Now,
	}

	if env["BUSLINE_RAW_DATA_DIR"] != "" {
		importer.RawDataDir = env["BUSLINE_RAW_DATA_DIR"]
	}
	if env["BUSLINE_GTFS_DATA_DIR"] != "" {
		importer.GTFSDataDir = env["BUSLINE_GTFS_DATA_DIR"]
	}
	if env["BUSLINE_ROUTE_DISTANCES"] == string(ctdf.DistanceRepresentationIncremental) {
		importer.DistanceRepresentation = ctdf.DistanceRepresentationIncremental
	}

	return importer
}

func (i *Importer) now() time.Time {
	if i.Now == nil {
		return time.Now()
	}
	return i.Now()
}

// Prepare creates the data directories and checks the upstream is reachable. An unreachable
// upstream is only logged, the scheduled jobs retry on their next run.
func (i *Importer) Prepare(ctx context.Context) error {
	for _, directory := range []string{i.RawDataDir, i.GTFSDataDir} {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return err
		}
	}

	if err := i.Upstream.Health(ctx); err != nil {
		log.Error().Err(err).Msg("Upstream feed health check failed")
	} else {
		log.Info().Str("url", i.Upstream.BaseURL).Msg("Connected to upstream feed")
	}

	return nil
}

func recordCounts(kind string, result JobResult) {
	metrics.RecordsImported.WithLabelValues(kind).Add(float64(result.Records))
	metrics.RecordsInvalid.WithLabelValues(kind).Add(float64(result.Invalid))
}

func (i *Importer) ImportStops(ctx context.Context) (JobResult, error) {
	log.Info().Msg("Importing stops")

	payload, err := i.Upstream.FetchStops(ctx)
	if err != nil {
		return JobResult{}, fmt.Errorf("fetching stops: %w", err)
	}
	i.saveRaw("stops", payload.Raw)

	records, invalid := upstream.Validate("stops", payload.Records)

	now := i.now()
	stops := make([]*ctdf.Stop, 0, len(records))
	for index := range records {
		stops = append(stops, records[index].ToCTDF(now))
	}

	upserted, err := i.Store.UpsertStops(ctx, stops)
	if err != nil {
		return JobResult{}, fmt.Errorf("storing stops: %w", err)
	}

	result := JobResult{Records: len(stops), Invalid: invalid, Inserted: upserted.Inserted, Updated: upserted.Updated}
	recordCounts("stops", result)

	log.Info().
		Int64("inserted", result.Inserted).
		Int64("updated", result.Updated).
		Int("invalid", result.Invalid).
		Msg("Stops import completed")

	return result, nil
}

func (i *Importer) ImportRoutes(ctx context.Context) (JobResult, error) {
	log.Info().Msg("Importing routes")

	payload, err := i.Upstream.FetchRoutes(ctx)
	if err != nil {
		return JobResult{}, fmt.Errorf("fetching routes: %w", err)
	}
	i.saveRaw("routes", payload.Raw)

	records, invalid := upstream.Validate("routes", payload.Records)

	now := i.now()
	routes := make([]*ctdf.Route, 0, len(records))
	for index := range records {
		routes = append(routes, records[index].ToCTDF(now, i.DistanceRepresentation))
	}

	upserted, err := i.Store.UpsertRoutes(ctx, routes)
	if err != nil {
		return JobResult{}, fmt.Errorf("storing routes: %w", err)
	}

	result := JobResult{Records: len(routes), Invalid: invalid, Inserted: upserted.Inserted, Updated: upserted.Updated}
	recordCounts("routes", result)

	log.Info().
		Int64("inserted", result.Inserted).
		Int64("updated", result.Updated).
		Int("invalid", result.Invalid).
		Msg("Routes import completed")

	return result, nil
}

func (i *Importer) ImportBuses(ctx context.Context) (JobResult, error) {
	log.Info().Msg("Importing buses")

	payload, err := i.Upstream.FetchBuses(ctx)
	if err != nil {
		return JobResult{}, fmt.Errorf("fetching buses: %w", err)
	}
	i.saveRaw("buses", payload.Raw)

	records, invalid := upstream.Validate("buses", payload.Records)

	now := i.now()
	vehicles := make([]*ctdf.Vehicle, 0, len(records))
	for index := range records {
		vehicles = append(vehicles, records[index].ToCTDF(now))
	}

	upserted, err := i.Store.UpsertVehicles(ctx, vehicles)
	if err != nil {
		return JobResult{}, fmt.Errorf("storing buses: %w", err)
	}

	result := JobResult{Records: len(vehicles), Invalid: invalid, Inserted: upserted.Inserted, Updated: upserted.Updated}
	recordCounts("buses", result)

	log.Info().
		Int64("inserted", result.Inserted).
		Int64("updated", result.Updated).
		Int("invalid", result.Invalid).
		Msg("Buses import completed")

	return result, nil
}

// FetchPositions pulls the current GPS samples and hands them to the positions sink
func (i *Importer) FetchPositions(ctx context.Context) (JobResult, error) {
	log.Info().Msg("Fetching vehicle positions")

	payload, err := i.Upstream.FetchGPS(ctx)
	if err != nil {
		return JobResult{}, fmt.Errorf("fetching gps: %w", err)
	}
	i.saveRaw("gps", payload.Raw)

	records, invalid := upstream.Validate("gps", payload.Records)

	now := i.now()
	positions := make([]*ctdf.VehiclePosition, 0, len(records))
	for index := range records {
		position := records[index].ToCTDF(now)
		if !position.IsCurrent(now, ctdf.PositionRetentionWindow) || !position.Location.Valid() {
			invalid++
			continue
		}
		positions = append(positions, position)
	}

	sink := i.Positions
	if sink == nil {
		sink = i.Store
	}

	if err := sink.UpsertPositions(ctx, positions); err != nil {
		return JobResult{}, fmt.Errorf("storing positions: %w", err)
	}

	result := JobResult{Records: len(positions), Invalid: invalid}
	recordCounts("gps", result)

	log.Info().Int("positions", result.Records).Int("invalid", result.Invalid).Msg("Vehicle positions fetched")

	return result, nil
}

// UpdateSchedules re-imports the routes, which carry the schedules
func (i *Importer) UpdateSchedules(ctx context.Context) (JobResult, error) {
	result, err := i.ImportRoutes(ctx)
	if err != nil {
		return result, err
	}

	log.Info().Int("routes", result.Records).Msg("Schedule update completed")

	return result, nil
}

func (i *Importer) GenerateStaticExport(ctx context.Context) (JobResult, error) {
	log.Info().Msg("Generating GTFS static feed")

	stops, err := i.Store.AllStops(ctx)
	if err != nil {
		return JobResult{}, fmt.Errorf("loading stops: %w", err)
	}
	routes, err := i.Store.AllRoutes(ctx)
	if err != nil {
		return JobResult{}, fmt.Errorf("loading routes: %w", err)
	}

	now := i.now()

	feed, err := gtfs.BuildFeed(i.Agency, stops, routes, now)
	if err != nil {
		return JobResult{}, err
	}

	if _, err := gtfs.WriteFeed(i.GTFSDataDir, feed, now); err != nil {
		return JobResult{}, err
	}

	return JobResult{Records: len(feed.Stops) + len(feed.Routes) + len(feed.Trips)}, nil
}

// Cleanup removes expired positions along with old raw snapshots and exports. The positions
// collection also has a TTL index, this covers stores without one.
func (i *Importer) Cleanup(ctx context.Context) (JobResult, error) {
	log.Info().Msg("Cleaning up old data")

	now := i.now()

	deleted, err := i.Store.DeletePositionsBefore(ctx, now.Add(-ctdf.PositionRetentionWindow))
	if err != nil {
		return JobResult{}, fmt.Errorf("deleting positions: %w", err)
	}
	log.Info().Int64("deleted", deleted).Msg("Deleted old vehicle positions")

	rawRemoved, err := pruneOlderThan(i.RawDataDir, now.Add(-rawDataRetention), nil)
	if err != nil {
		return JobResult{}, err
	}
	exportsRemoved, err := pruneOlderThan(i.GTFSDataDir, now.Add(-gtfsExportRetention), gtfs.IsExport)
	if err != nil {
		return JobResult{}, err
	}

	log.Info().Int("raw", rawRemoved).Int("exports", exportsRemoved).Msg("Data cleanup completed")

	return JobResult{Records: int(deleted) + rawRemoved + exportsRemoved}, nil
}

// FullImport runs static data first, then positions and finally a fresh export. A failed step
// stops the rest. A step whose job is already running elsewhere is skipped.
func (i *Importer) FullImport(ctx context.Context) (JobResult, error) {
	log.Info().Msg("Starting full data import")

	var total JobResult

	steps := []struct {
		name string
		run  func(context.Context) (JobResult, error)
	}{
		{JobImportStops, i.ImportStops},
		{JobImportRoutes, i.ImportRoutes},
		{JobImportBuses, i.ImportBuses},
		{JobFetchGPS, i.FetchPositions},
		{JobGenerateGTFS, i.GenerateStaticExport},
	}

	for _, step := range steps {
		result, err := i.runStep(ctx, step.name, step.run)
		if errors.Is(err, ErrJobRunning) {
			continue
		} else if err != nil {
			return total, fmt.Errorf("%s: %w", step.name, err)
		}
		total.add(result)
	}

	log.Info().Int("records", total.Records).Msg("Full data import completed")

	return total, nil
}

var ErrUnknownJob = errors.New("unknown job")
