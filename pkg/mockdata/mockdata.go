package mockdata

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/util"
)

const (
	baseLatitude  = 12.9716
	baseLongitude = 77.5946

	// Degrees either side of the base point stops are scattered over
	spread = 0.05

	travelSpeedKmh = 15.0
)

var areas = []string{
	"Majestic", "Indiranagar", "Koramangala", "Jayanagar", "BTM Layout",
	"Whitefield", "Marathahalli", "JP Nagar", "Malleswaram", "Rajajinagar",
}

var origins = []string{"Kempegowda Bus Station", "Shivajinagar", "Jayanagar", "Whitefield", "Electronic City"}
var destinations = []string{"MG Road", "Banashankari", "Hebbal", "Silk Board", "Majestic"}

var occupancyLevels = []ctdf.OccupancyLevel{
	ctdf.OccupancyLevelLow, ctdf.OccupancyLevelMedium, ctdf.OccupancyLevelHigh, ctdf.OccupancyLevelVeryHigh,
}

type scheduleTemplate struct {
	dayType   ctdf.DayType
	firstBus  string
	lastBus   string
	frequency int
}

var scheduleTemplates = []scheduleTemplate{
	{ctdf.DayTypeWeekday, "05:30:00", "22:30:00", 10},
	{ctdf.DayTypeSaturday, "06:00:00", "22:00:00", 15},
	{ctdf.DayTypeSunday, "06:30:00", "21:30:00", 20},
}

// Network is a self consistent set of records, stops list the routes that call at them and every
// position sits on its route
type Network struct {
	Stops     []*ctdf.Stop            `yaml:"stops"`
	Routes    []*ctdf.Route           `yaml:"routes"`
	Vehicles  []*ctdf.Vehicle         `yaml:"vehicles"`
	Positions []*ctdf.VehiclePosition `yaml:"positions"`
}

type Config struct {
	Stops            int
	Routes           int
	VehiclesPerRoute int
	Seed             int64
}

func DefaultConfig() Config {
	return Config{
		Stops:            50,
		Routes:           20,
		VehiclesPerRoute: 2,
		Seed:             1,
	}
}

// Generate builds a network from a fixed seed, so the same config always gives the same records
func Generate(config Config, now time.Time) *Network {
	random := rand.New(rand.NewSource(config.Seed))

	network := &Network{}
	stopsByID := map[string]*ctdf.Stop{}

	for i := 0; i < config.Stops; i++ {
		area := areas[i%len(areas)]
		stop := &ctdf.Stop{
			PrimaryIdentifier:    fmt.Sprintf("STOP-%d", i+1),
			CreationDateTime:     now,
			ModificationDateTime: now,
			DataSource:           dataSource("stops", now),
			PrimaryName:          fmt.Sprintf("%s Bus Stop %d", area, i+1),
			Location: ctdf.NewPoint(
				baseLongitude+(random.Float64()-0.5)*2*spread,
				baseLatitude+(random.Float64()-0.5)*2*spread,
			),
			Address: fmt.Sprintf("%d Main Road, %s", i+1, area),
			Routes:  []string{},
			Amenities: ctdf.StopAmenities{
				HasShelter:      i%3 == 0,
				HasSeating:      i%2 == 0,
				HasDisplayBoard: i%5 == 0,
				IsAccessible:    i%4 == 0,
			},
			Active: true,
		}

		network.Stops = append(network.Stops, stop)
		stopsByID[stop.PrimaryIdentifier] = stop
	}

	for i := 0; i < config.Routes && len(network.Stops) >= 2; i++ {
		route := generateRoute(i, network.Stops, now)
		network.Routes = append(network.Routes, route)

		for _, routeStop := range route.Stops {
			stop := stopsByID[routeStop.StopRef]
			stop.Routes = append(stop.Routes, route.PrimaryIdentifier)
		}

		for v := 0; v < config.VehiclesPerRoute; v++ {
			vehicleNumber := len(network.Vehicles)
			vehicle := &ctdf.Vehicle{
				PrimaryIdentifier:    fmt.Sprintf("KA-57-F-%d", 1000+vehicleNumber),
				CreationDateTime:     now,
				ModificationDateTime: now,
				DataSource:           dataSource("buses", now),
				RegistrationNumber:   fmt.Sprintf("KA57F%04d", 1000+vehicleNumber),
				RouteRef:             route.PrimaryIdentifier,
				Capacity:             40 + 10*(vehicleNumber%3),
				Features: ctdf.VehicleFeatures{
					IsAC:                   i%2 == 1,
					IsElectric:             vehicleNumber%4 == 0,
					HasWifi:                vehicleNumber%3 == 0,
					IsWheelchairAccessible: vehicleNumber%2 == 0,
				},
				Active: true,
			}
			network.Vehicles = append(network.Vehicles, vehicle)
			network.Positions = append(network.Positions, generatePosition(random, vehicle, route, stopsByID, vehicleNumber, now))
		}
	}

	return network
}

func generateRoute(i int, stops []*ctdf.Stop, now time.Time) *ctdf.Route {
	stopCount := 5 + i%5
	if stopCount > len(stops) {
		stopCount = len(stops)
	}

	origin := origins[i%len(origins)]
	destination := destinations[(i+2)%len(destinations)]

	route := &ctdf.Route{
		PrimaryIdentifier:    fmt.Sprintf("ROUTE-%d", i+1),
		CreationDateTime:     now,
		ModificationDateTime: now,
		DataSource:           dataSource("routes", now),
		RouteNumber:          fmt.Sprintf("%d%c", i+1, 'A'+rune(i%26)),
		PrimaryName:          fmt.Sprintf("%s to %s", origin, destination),
		Origin:               origin,
		Destination:          destination,
		Frequency:            10 + i%10,
		Active:               true,
	}

	// Consecutive stops from a rotating offset so neighbouring routes share stops
	offset := (i * 3) % len(stops)
	cumulative := 0.0
	var previous *ctdf.Stop

	for s := 0; s < stopCount; s++ {
		stop := stops[(offset+s)%len(stops)]
		if previous != nil {
			cumulative += previous.Location.Distance(stop.Location)
		}

		name := stop.PrimaryName
		if s == 0 {
			name = origin
		} else if s == stopCount-1 {
			name = destination
		}

		route.Stops = append(route.Stops, ctdf.RouteStop{
			StopRef:            stop.PrimaryIdentifier,
			StopName:           name,
			SequenceNumber:     s + 1,
			DistanceFromOrigin: math.Round(cumulative),
			ExpectedTravelTime: travelMinutes(cumulative),
		})

		previous = stop
	}

	route.Distance = math.Round(cumulative) / 1000
	journeyMinutes := travelMinutes(cumulative)

	for _, template := range scheduleTemplates {
		route.Schedule = append(route.Schedule, ctdf.RouteSchedule{
			DayType: template.dayType,
			Trips:   generateTrips(template, template.frequency+i%10, journeyMinutes),
		})
	}

	return route
}

func generateTrips(template scheduleTemplate, frequency int, journeyMinutes int) []ctdf.ScheduleTrip {
	first, _ := util.ParseClockTime(template.firstBus)
	last, _ := util.ParseClockTime(template.lastBus)

	var trips []ctdf.ScheduleTrip
	for departure := first; departure <= last; departure += time.Duration(frequency) * time.Minute {
		trips = append(trips, ctdf.ScheduleTrip{
			DepartureTime: util.FormatClockTime(departure),
			ArrivalTime:   util.FormatClockTime(departure + time.Duration(journeyMinutes)*time.Minute),
		})
	}

	return trips
}

func generatePosition(random *rand.Rand, vehicle *ctdf.Vehicle, route *ctdf.Route, stops map[string]*ctdf.Stop, vehicleNumber int, now time.Time) *ctdf.VehiclePosition {
	// Never place the vehicle at the final stop so it always has somewhere to go
	segment := random.Intn(len(route.Stops) - 1)
	last := stops[route.Stops[segment].StopRef]
	next := stops[route.Stops[segment+1].StopRef]

	progress := random.Float64()
	speed := math.Round((10+random.Float64()*30)*10) / 10
	delay := float64(random.Intn(11) - 3)

	return &ctdf.VehiclePosition{
		VehicleRef:           vehicle.PrimaryIdentifier,
		RouteRef:             route.PrimaryIdentifier,
		CreationDateTime:     now,
		ModificationDateTime: now,
		DataSource:           dataSource("gps", now),
		Location: *ctdf.NewPoint(
			last.Location.Longitude()+(next.Location.Longitude()-last.Location.Longitude())*progress,
			last.Location.Latitude()+(next.Location.Latitude()-last.Location.Latitude())*progress,
		),
		Speed:          &speed,
		Heading:        float64(random.Intn(360)),
		LastStopRef:    last.PrimaryIdentifier,
		NextStopRef:    next.PrimaryIdentifier,
		OccupancyLevel: occupancyLevels[vehicleNumber%len(occupancyLevels)],
		Delay:          &delay,
		Timestamp:      now.Add(-time.Duration(random.Intn(120)) * time.Second),
	}
}

func travelMinutes(metres float64) int {
	return int(math.Ceil(metres / 1000 / travelSpeedKmh * 60))
}

func dataSource(datasetID string, now time.Time) *ctdf.DataSource {
	return &ctdf.DataSource{
		OriginalFormat: "mockdata",
		Provider:       "mockdata",
		DatasetID:      datasetID,
		Timestamp:      now.Format(time.RFC3339),
	}
}
