package gtfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/busline/busline/pkg/ctdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

var exportTime = time.Date(2024, 3, 4, 2, 0, 0, 0, time.UTC)

func testNetwork() ([]*ctdf.Stop, []*ctdf.Route) {
	stops := []*ctdf.Stop{
		{PrimaryIdentifier: "S2", PrimaryName: "Market", Location: ctdf.NewPoint(77.6, 12.9)},
		{PrimaryIdentifier: "S1", PrimaryName: "Depot", Location: ctdf.NewPoint(77.5, 12.8), Amenities: ctdf.StopAmenities{IsAccessible: true}},
		{PrimaryIdentifier: "S3", PrimaryName: "Station", Location: ctdf.NewPoint(77.7, 13.0)},
	}

	routes := []*ctdf.Route{
		{
			PrimaryIdentifier: "500D",
			PrimaryName:       "Depot - Station",
			Destination:       "Station",
			Stops: []ctdf.RouteStop{
				{StopRef: "S3", SequenceNumber: 3, ExpectedTravelTime: 25},
				{StopRef: "S1", SequenceNumber: 1, ExpectedTravelTime: 0},
				{StopRef: "S2", SequenceNumber: 2, ExpectedTravelTime: 12},
			},
			Schedule: []ctdf.RouteSchedule{
				{DayType: ctdf.DayTypeWeekday, Trips: []ctdf.ScheduleTrip{
					{DepartureTime: "06:00:00", ArrivalTime: "06:30:00"},
					{DepartureTime: "07:00:00", ArrivalTime: "07:30:00"},
				}},
				{DayType: ctdf.DayTypeSunday, Trips: []ctdf.ScheduleTrip{
					{DepartureTime: "23:50:00", ArrivalTime: "24:20:00"},
				}},
				{DayType: ctdf.DayTypeHoliday, Trips: []ctdf.ScheduleTrip{
					{DepartureTime: "09:00:00", ArrivalTime: "09:30:00"},
				}},
			},
		},
	}

	return stops, routes
}

func TestBuildFeed(t *testing.T) {
	stops, routes := testNetwork()
	agency := AgencyConfig{ID: "AG", Name: "Agency", URL: "https://agency.test", Timezone: "Asia/Kolkata"}

	feed, err := BuildFeed(agency, stops, routes, exportTime)
	require.NoError(t, err)

	require.Len(t, feed.Agencies, 1)
	assert.Equal(t, "AG", feed.Agencies[0].ID)

	require.Len(t, feed.Stops, 3)
	assert.Equal(t, "S1", feed.Stops[0].ID)
	assert.Equal(t, 1, feed.Stops[0].Wheelchair)
	assert.Equal(t, 0, feed.Stops[1].Wheelchair)
	assert.Equal(t, 12.8, feed.Stops[0].Latitude)
	assert.Equal(t, 77.5, feed.Stops[0].Longitude)

	require.Len(t, feed.Routes, 1)
	assert.Equal(t, "AG", feed.Routes[0].AgencyID)
	assert.Equal(t, 3, feed.Routes[0].Type)
	assert.Equal(t, "0000FF", feed.Routes[0].Colour)

	require.Len(t, feed.Calendars, 1)
	assert.Equal(t, "everyday", feed.Calendars[0].ServiceID)
	assert.Equal(t, "20240304", feed.Calendars[0].StartDate)
	assert.Equal(t, "20250304", feed.Calendars[0].EndDate)

	// No Saturday schedule and holidays are not exported
	require.Len(t, feed.Trips, 2)
	assert.Equal(t, "500D_WEEKDAY_1", feed.Trips[0].ID)
	assert.Equal(t, "500D_SUNDAY_1", feed.Trips[1].ID)
	assert.Equal(t, "Station", feed.Trips[0].Headsign)
	assert.Empty(t, feed.Trips[0].ShapeID)

	var weekday []*StopTime
	var sunday []*StopTime
	for _, stopTime := range feed.StopTimes {
		if stopTime.TripID == "500D_WEEKDAY_1" {
			weekday = append(weekday, stopTime)
		} else {
			sunday = append(sunday, stopTime)
		}
	}

	require.Len(t, weekday, 3)
	assert.Equal(t, "S1", weekday[0].StopID)
	assert.Equal(t, "06:00:00", weekday[0].ArrivalTime)
	assert.Equal(t, "06:12:00", weekday[1].ArrivalTime)
	assert.Equal(t, "06:30:00", weekday[2].ArrivalTime)

	require.Len(t, sunday, 3)
	assert.Equal(t, "24:02:00", sunday[1].DepartureTime)
	assert.Equal(t, "24:20:00", sunday[2].ArrivalTime)
}

func TestBuildFeedSkipsInvalidTrips(t *testing.T) {
	stops, routes := testNetwork()
	routes[0].Schedule[0].Trips[0].DepartureTime = "six o'clock"

	feed, err := BuildFeed(AgencyConfig{ID: "AG"}, stops, routes, exportTime)
	require.NoError(t, err)

	require.Len(t, feed.Trips, 1)
	assert.Equal(t, "500D_SUNDAY_1", feed.Trips[0].ID)
	assert.Len(t, feed.StopTimes, 3)
}

func TestWriteFeed(t *testing.T) {
	stops, routes := testNetwork()
	feed, err := BuildFeed(AgencyConfig{ID: "AG", Name: "Agency"}, stops, routes, exportTime)
	require.NoError(t, err)

	baseDir := t.TempDir()
	export, err := WriteFeed(baseDir, feed, exportTime)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(baseDir, "gtfs_2024-03-04T02-00-00.000Z"), export.Directory)
	assert.True(t, IsExport(filepath.Base(export.Directory)))
	require.Len(t, export.Files, 6)

	stopsFile, err := os.ReadFile(filepath.Join(export.Directory, "stops.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(stopsFile)), "\n")
	assert.Equal(t, "stop_id,stop_name,stop_lat,stop_lon,wheelchair_boarding", lines[0])
	assert.Len(t, lines, 4)

	archive, err := zip.OpenReader(export.Archive)
	require.NoError(t, err)
	defer archive.Close()

	var names []string
	for _, file := range archive.File {
		names = append(names, file.Name)
	}
	assert.ElementsMatch(t, []string{"agency.txt", "stops.txt", "routes.txt", "trips.txt", "stop_times.txt", "calendar.txt"}, names)
}

func TestBuildVehiclePositionsFeed(t *testing.T) {
	speed := 36.0
	positions := []*ctdf.VehiclePosition{
		{VehicleRef: "B2", RouteRef: "500D", Location: *ctdf.NewPoint(77.5, 12.9), Timestamp: exportTime.Add(-time.Minute)},
		{VehicleRef: "B1", RouteRef: "500D", Location: *ctdf.NewPoint(77.4, 12.8), Timestamp: exportTime.Add(-10 * time.Minute)},
		{
			VehicleRef:     "B1",
			RouteRef:       "500D",
			Location:       *ctdf.NewPoint(77.6, 12.95),
			Speed:          &speed,
			Heading:        90,
			NextStopRef:    "S2",
			OccupancyLevel: ctdf.OccupancyLevelHigh,
			Timestamp:      exportTime.Add(-2 * time.Minute),
		},
		nil,
	}

	message := BuildVehiclePositionsFeed(positions, exportTime)

	assert.Equal(t, "2.0", message.GetHeader().GetGtfsRealtimeVersion())
	assert.Equal(t, gtfs.FeedHeader_FULL_DATASET, message.GetHeader().GetIncrementality())
	assert.Equal(t, uint64(exportTime.Unix()), message.GetHeader().GetTimestamp())

	require.Len(t, message.GetEntity(), 2)
	first := message.GetEntity()[0]
	assert.Equal(t, "B1", first.GetId())
	assert.Equal(t, "S2", first.GetVehicle().GetStopId())
	assert.Equal(t, gtfs.VehiclePosition_IN_TRANSIT_TO, first.GetVehicle().GetCurrentStatus())
	assert.Equal(t, gtfs.VehiclePosition_STANDING_ROOM_ONLY, first.GetVehicle().GetOccupancyStatus())
	assert.InDelta(t, 10.0, first.GetVehicle().GetPosition().GetSpeed(), 0.001)
	assert.InDelta(t, 12.95, first.GetVehicle().GetPosition().GetLatitude(), 0.0001)

	second := message.GetEntity()[1]
	assert.Nil(t, second.GetVehicle().GetPosition().Speed)
	assert.Nil(t, second.GetVehicle().StopId)

	encoded, err := MarshalFeed(message)
	require.NoError(t, err)

	decoded := &gtfs.FeedMessage{}
	require.NoError(t, proto.Unmarshal(encoded, decoded))
	assert.Len(t, decoded.GetEntity(), 2)

	encodedJSON, err := MarshalFeedJSON(message)
	require.NoError(t, err)
	assert.Contains(t, string(encodedJSON), "gtfs_realtime_version")
}
