package dataimporter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/dataimporter/store"
	"github.com/busline/busline/pkg/gtfs"
	"github.com/busline/busline/pkg/mockdata"
	"github.com/busline/busline/pkg/upstream"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var importTime = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

const stopsPayload = `[
	{"stop_id": 1, "stop_name": "Depot", "latitude": "12.97", "longitude": 77.59, "is_accessible": true, "routes": ["500D"]},
	{"stop_id": "2", "stop_name": "Market", "latitude": 12.98, "longitude": 77.60, "routes": ["500D", "500D"]},
	{"stop_id": "3", "stop_name": "Station", "latitude": 12.99, "longitude": 77.61, "routes": ["500D"]},
	{"stop_name": "No identifier", "latitude": 12.99, "longitude": 77.61}
]`

const routesPayload = `[
	{
		"route_id": "500D", "route_name": "Depot to Station", "origin": "Depot", "destination": "Station",
		"distance": 5, "frequency": "15",
		"stops": [
			{"stop_id": 1, "stop_name": "Depot", "sequence": 1, "distance": 0, "travel_time": 0},
			{"stop_id": 2, "stop_name": "Market", "sequence": 2, "distance": 2000, "travel_time": 8},
			{"stop_id": 3, "stop_name": "Station", "sequence": 3, "distance": 3000, "travel_time": 20}
		],
		"schedule": [
			{"day_type": "WEEKDAY", "trips": [{"departure_time": "06:00:00", "arrival_time": "06:20:00"}]}
		]
	},
	{
		"route_id": "BAD", "route_name": "Broken schedule",
		"schedule": [{"day_type": "WEEKDAY", "trips": [{"departure_time": "later", "arrival_time": "06:20:00"}]}]
	}
]`

const busesPayload = `[
	{"vehicle_id": "KA-01", "registration_number": "KA01F1000", "route_id": "500D", "capacity": 40, "is_active": true, "is_ac": true, "last_service_date": "2024-02-01"},
	{"vehicle_id": "KA-02", "registration_number": "", "route_id": "500D"}
]`

const gpsPayload = `[
	{"vehicle_id": "KA-01", "route_id": "500D", "latitude": 12.975, "longitude": 77.595, "speed": 30, "last_stop_id": 1, "next_stop_id": 2, "timestamp": "2024-03-04T09:29:00Z"},
	{"vehicle_id": "KA-03", "route_id": "500D", "latitude": 12.975, "longitude": 77.595, "speed": 30, "last_stop_id": 1, "timestamp": "2024-03-02T09:29:00Z"},
	{"vehicle_id": "KA-04", "route_id": "500D", "latitude": 12.975, "longitude": 77.595, "timestamp": "yesterday"},
	{"vehicle_id": "KA-05", "route_id": "500D", "latitude": 95.1, "longitude": 77.595, "timestamp": "2024-03-04T09:29:00Z"}
]`

type testUpstream struct {
	server   *httptest.Server
	failGPS  atomic.Bool
	requests atomic.Int32
}

func newTestUpstream(t *testing.T) *testUpstream {
	t.Helper()

	upstreamServer := &testUpstream{}
	payloads := map[string]string{
		"/v1/stops":  stopsPayload,
		"/v1/routes": routesPayload,
		"/v1/buses":  busesPayload,
		"/v1/gps":    gpsPayload,
	}

	upstreamServer.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamServer.requests.Add(1)

		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path == "/v1/gps" && upstreamServer.failGPS.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		payload, exists := payloads[r.URL.Path]
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	t.Cleanup(upstreamServer.server.Close)

	return upstreamServer
}

func newTestImporter(t *testing.T) (*Importer, *store.Memory, *testUpstream, *miniredis.Miniredis) {
	t.Helper()

	upstreamServer := newTestUpstream(t)
	redisServer := miniredis.RunT(t)
	memory := store.NewMemory()

	importer := &Importer{
		Upstream:               upstream.NewClient(upstreamServer.server.URL, "key", 5*time.Second),
		Store:                  memory,
		Positions:              memory,
		Stats:                  NewStatsRecorder(redis.NewClient(&redis.Options{Addr: redisServer.Addr()})),
		RawDataDir:             filepath.Join(t.TempDir(), "raw"),
		GTFSDataDir:            filepath.Join(t.TempDir(), "gtfs"),
		Agency:                 gtfs.AgencyConfig{ID: "AG", Name: "Agency"},
		DistanceRepresentation: ctdf.DistanceRepresentationIncremental,
		Now:                    func() time.Time { return importTime },
	}

	return importer, memory, upstreamServer, redisServer
}

func TestImportStops(t *testing.T) {
	importer, memory, _, _ := newTestImporter(t)

	result, err := importer.ImportStops(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Records)
	assert.Equal(t, 1, result.Invalid)
	assert.Equal(t, int64(3), result.Inserted)

	stop, err := memory.GetStop(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"500D"}, stop.Routes)

	depot, err := memory.GetStop(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, depot.Amenities.IsAccessible)
	assert.Equal(t, 12.97, depot.Location.Latitude())

	// Running again updates instead of duplicating
	result, err = importer.ImportStops(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Inserted)
	assert.Equal(t, int64(3), result.Updated)

	stops, err := memory.AllStops(context.Background())
	require.NoError(t, err)
	assert.Len(t, stops, 3)
}

func TestImportRoutesNormalisesDistances(t *testing.T) {
	importer, memory, _, _ := newTestImporter(t)

	result, err := importer.ImportRoutes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Records)
	assert.Equal(t, 1, result.Invalid)

	route, err := memory.GetRoute(context.Background(), "500D")
	require.NoError(t, err)
	require.Len(t, route.Stops, 3)
	assert.Equal(t, 0.0, route.Stops[0].DistanceFromOrigin)
	assert.Equal(t, 2000.0, route.Stops[1].DistanceFromOrigin)
	assert.Equal(t, 5000.0, route.Stops[2].DistanceFromOrigin)
	assert.Equal(t, 15, route.Frequency)
	assert.True(t, route.Active)
}

func TestImportBuses(t *testing.T) {
	importer, _, _, _ := newTestImporter(t)

	result, err := importer.ImportBuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Records)
	assert.Equal(t, 1, result.Invalid)
}

func TestFetchPositionsDropsStaleAndInvalid(t *testing.T) {
	importer, memory, _, _ := newTestImporter(t)

	result, err := importer.FetchPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Records)
	assert.Equal(t, 3, result.Invalid)

	positions, err := memory.GetActivePositions(context.Background(), "500D", importTime.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "KA-01", positions[0].VehicleRef)
	assert.Equal(t, "1", positions[0].LastStopRef)

	// Same sample again is an upsert
	_, err = importer.FetchPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, memory.PositionCount())
}

type recordingSink struct {
	positions []*ctdf.VehiclePosition
}

func (r *recordingSink) UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error {
	r.positions = append(r.positions, positions...)
	return nil
}

func TestFetchPositionsUsesSink(t *testing.T) {
	importer, memory, _, _ := newTestImporter(t)
	sink := &recordingSink{}
	importer.Positions = sink

	_, err := importer.FetchPositions(context.Background())
	require.NoError(t, err)
	assert.Len(t, sink.positions, 1)
	assert.Equal(t, 0, memory.PositionCount())
}

func TestRawPayloadsAreSaved(t *testing.T) {
	importer, _, _, _ := newTestImporter(t)

	_, err := importer.ImportStops(context.Background())
	require.NoError(t, err)

	path := filepath.Join(importer.RawDataDir, "stops_2024-03-04T09-30-00.000Z.json")
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "Depot")
}

func TestFullImportAndExport(t *testing.T) {
	importer, memory, _, _ := newTestImporter(t)

	result, err := importer.FullImport(context.Background())
	require.NoError(t, err)
	assert.Positive(t, result.Records)

	assert.Equal(t, 1, memory.PositionCount())

	entries, err := os.ReadDir(importer.GTFSDataDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.FileExists(t, filepath.Join(importer.GTFSDataDir, gtfs.ExportName(importTime), "stop_times.txt"))
	assert.FileExists(t, filepath.Join(importer.GTFSDataDir, gtfs.ExportName(importTime)+".zip"))
}

func TestFullImportStopsOnFailure(t *testing.T) {
	importer, _, upstreamServer, _ := newTestImporter(t)
	upstreamServer.failGPS.Store(true)

	_, err := importer.FullImport(context.Background())
	assert.ErrorContains(t, err, JobFetchGPS)

	_, statErr := os.Stat(filepath.Join(importer.GTFSDataDir, gtfs.ExportName(importTime)))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCleanup(t *testing.T) {
	importer, memory, _, _ := newTestImporter(t)

	require.NoError(t, memory.UpsertPositions(context.Background(), []*ctdf.VehiclePosition{
		{VehicleRef: "OLD", RouteRef: "R", Timestamp: importTime.Add(-25 * time.Hour)},
		{VehicleRef: "NEW", RouteRef: "R", Timestamp: importTime.Add(-time.Hour)},
	}))

	require.NoError(t, os.MkdirAll(importer.RawDataDir, 0o755))
	require.NoError(t, os.MkdirAll(importer.GTFSDataDir, 0o755))

	oldRaw := filepath.Join(importer.RawDataDir, "gps_old.json")
	newRaw := filepath.Join(importer.RawDataDir, "gps_new.json")
	oldExport := filepath.Join(importer.GTFSDataDir, "gtfs_old")
	newExport := filepath.Join(importer.GTFSDataDir, "gtfs_new")
	unrelated := filepath.Join(importer.GTFSDataDir, "notes.txt")

	for _, path := range []string{oldRaw, newRaw, unrelated} {
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}
	for _, path := range []string{oldExport, newExport} {
		require.NoError(t, os.MkdirAll(path, 0o755))
	}

	require.NoError(t, os.Chtimes(oldRaw, importTime.Add(-8*24*time.Hour), importTime.Add(-8*24*time.Hour)))
	require.NoError(t, os.Chtimes(newRaw, importTime.Add(-6*24*time.Hour), importTime.Add(-6*24*time.Hour)))
	require.NoError(t, os.Chtimes(oldExport, importTime.Add(-31*24*time.Hour), importTime.Add(-31*24*time.Hour)))
	require.NoError(t, os.Chtimes(newExport, importTime.Add(-29*24*time.Hour), importTime.Add(-29*24*time.Hour)))
	require.NoError(t, os.Chtimes(unrelated, importTime.Add(-90*24*time.Hour), importTime.Add(-90*24*time.Hour)))

	result, err := importer.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Records)

	assert.Equal(t, 1, memory.PositionCount())
	assert.NoFileExists(t, oldRaw)
	assert.FileExists(t, newRaw)
	assert.NoDirExists(t, oldExport)
	assert.DirExists(t, newExport)
	assert.FileExists(t, unrelated)
}

func TestCleanupMissingDirectories(t *testing.T) {
	importer, _, _, _ := newTestImporter(t)

	_, err := importer.Cleanup(context.Background())
	assert.NoError(t, err)
}

func TestRunJobRecordsStats(t *testing.T) {
	importer, _, upstreamServer, _ := newTestImporter(t)

	_, err := importer.RunJob(context.Background(), JobImportStops)
	require.NoError(t, err)

	upstreamServer.failGPS.Store(true)
	_, err = importer.RunJob(context.Background(), JobFetchGPS)
	require.Error(t, err)

	status, err := importer.Stats.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), status.RecordsProcessed)
	assert.Equal(t, int64(1), status.Errors)
	assert.Empty(t, status.RunningJobs)
	require.NotNil(t, status.LastRun)

	require.Len(t, status.Jobs, 2)
	assert.Equal(t, JobImportStops, status.Jobs[0].Job)
	assert.Equal(t, int64(1), status.Jobs[0].Runs)
	assert.Equal(t, int64(3), status.Jobs[0].LastRecords)
	assert.NotNil(t, status.Jobs[0].LastSuccess)

	assert.Equal(t, JobFetchGPS, status.Jobs[1].Job)
	assert.Equal(t, int64(1), status.Jobs[1].Errors)
	assert.Contains(t, status.Jobs[1].LastError, "502")
	assert.Nil(t, status.Jobs[1].LastSuccess)
}

func TestRunJobSkipsWhenRunning(t *testing.T) {
	importer, _, upstreamServer, _ := newTestImporter(t)

	started, err := importer.Stats.JobStarted(context.Background(), JobImportStops)
	require.NoError(t, err)
	require.True(t, started)

	before := upstreamServer.requests.Load()
	_, err = importer.RunJob(context.Background(), JobImportStops)
	assert.ErrorIs(t, err, ErrJobRunning)
	assert.Equal(t, before, upstreamServer.requests.Load())

	status, err := importer.Stats.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{JobImportStops}, status.RunningJobs)

	require.NoError(t, importer.Stats.ClearRunning(context.Background()))
	_, err = importer.RunJob(context.Background(), JobImportStops)
	assert.NoError(t, err)
}

func TestRunJobUnknown(t *testing.T) {
	importer, _, _, _ := newTestImporter(t)

	_, err := importer.RunJob(context.Background(), "make-coffee")
	assert.True(t, errors.Is(err, ErrUnknownJob))

	assert.True(t, ValidJob(JobCleanup))
	assert.False(t, ValidJob("make-coffee"))
}

func TestNilStatsRecorder(t *testing.T) {
	var recorder *StatsRecorder

	started, err := recorder.JobStarted(context.Background(), JobCleanup)
	require.NoError(t, err)
	assert.True(t, started)
	assert.NoError(t, recorder.JobFinished(context.Background(), JobCleanup, time.Now(), JobResult{}, nil))

	status, err := recorder.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status.Jobs)
}

func TestSeedGeneratedNetwork(t *testing.T) {
	memory := store.NewMemory()
	network := mockdata.Generate(mockdata.DefaultConfig(), importTime)

	result, err := Seed(context.Background(), memory, network)
	require.NoError(t, err)
	assert.Equal(t, int64(50+20+40), result.Inserted)

	routes, err := memory.GetActiveRoutes(context.Background())
	require.NoError(t, err)
	assert.Len(t, routes, 20)
	assert.Equal(t, 40, memory.PositionCount())
}

func TestSchedulerRegistersJobs(t *testing.T) {
	importer, _, _, _ := newTestImporter(t)

	s, err := importer.NewScheduler(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Running())
}

func TestRunJobRecoversPanicAndClearsRunningFlag(t *testing.T) {
	importer, memory, _, _ := newTestImporter(t)
	importer.Store = nil

	_, err := importer.RunJob(context.Background(), JobCleanup)
	require.ErrorIs(t, err, ErrJobPanicked)

	status, err := importer.Stats.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status.RunningJobs)
	assert.Equal(t, int64(1), status.Errors)
	require.Len(t, status.Jobs, 1)
	assert.Contains(t, status.Jobs[0].LastError, "panicked")

	importer.Store = memory
	_, err = importer.RunJob(context.Background(), JobCleanup)
	assert.NoError(t, err)
}

type flagCheckingSink struct {
	stats   *StatsRecorder
	running []string
}

func (f *flagCheckingSink) UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error {
	status, err := f.stats.Status(ctx)
	if err != nil {
		return err
	}
	f.running = status.RunningJobs
	return nil
}

func TestFullImportHoldsStepRunningFlags(t *testing.T) {
	importer, _, _, _ := newTestImporter(t)
	sink := &flagCheckingSink{stats: importer.Stats}
	importer.Positions = sink

	_, err := importer.RunJob(context.Background(), JobFullImport)
	require.NoError(t, err)
	assert.Equal(t, []string{JobFetchGPS, JobFullImport}, sink.running)

	status, err := importer.Stats.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status.RunningJobs)

	// The step released its flag once it finished
	started, err := importer.Stats.JobStarted(context.Background(), JobFetchGPS)
	require.NoError(t, err)
	assert.True(t, started)
}

func TestFullImportSkipsStepAlreadyRunning(t *testing.T) {
	importer, memory, upstreamServer, _ := newTestImporter(t)

	started, err := importer.Stats.JobStarted(context.Background(), JobFetchGPS)
	require.NoError(t, err)
	require.True(t, started)

	// The skipped step never reaches the upstream, even when it would fail
	upstreamServer.failGPS.Store(true)

	_, err = importer.FullImport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, memory.PositionCount())
	assert.FileExists(t, filepath.Join(importer.GTFSDataDir, gtfs.ExportName(importTime)+".zip"))

	status, err := importer.Stats.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{JobFetchGPS}, status.RunningJobs)
}
