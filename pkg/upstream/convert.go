package upstream

import (
	"math"
	"strings"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/util"
	"github.com/jinzhu/copier"
)

const ProviderName = "upstream-feed"

func dataSource(datasetID string, now time.Time) *ctdf.DataSource {
	return &ctdf.DataSource{
		OriginalFormat: "JSON",
		Provider:       ProviderName,
		DatasetID:      datasetID,
		Timestamp:      now.Format(time.RFC3339),
	}
}

func (r *StopRecord) ToCTDF(now time.Time) *ctdf.Stop {
	stop := &ctdf.Stop{
		PrimaryIdentifier:    r.StopID.String(),
		ModificationDateTime: now,
		DataSource:           dataSource("stops", now),
		PrimaryName:          strings.TrimSpace(r.StopName),
		Location:             ctdf.NewPoint(r.Longitude.Value, r.Latitude.Value),
		Address:              r.Address,
		Routes:               []string{},
		Active:               true,
	}

	copier.Copy(&stop.Amenities, r)

	for _, route := range r.Routes {
		if route != "" {
			stop.Routes = append(stop.Routes, route.String())
		}
	}
	if deduplicated := util.RemoveDuplicateStrings(stop.Routes, []string{}); deduplicated != nil {
		stop.Routes = deduplicated
	}

	return stop
}

// ToCTDF converts the route, normalising the stop distances into metres from origin
func (r *RouteRecord) ToCTDF(now time.Time, representation ctdf.DistanceRepresentation) *ctdf.Route {
	route := &ctdf.Route{
		PrimaryIdentifier:    r.RouteID.String(),
		ModificationDateTime: now,
		DataSource:           dataSource("routes", now),
		RouteNumber:          r.RouteID.String(),
		PrimaryName:          r.RouteName,
		Origin:               r.Origin,
		Destination:          r.Destination,
		Distance:             r.Distance.Value,
		Frequency:            int(math.Round(r.Frequency.Value)),
		Stops:                []ctdf.RouteStop{},
		Schedule:             []ctdf.RouteSchedule{},
		Active:               true,
	}

	stops := make([]ctdf.RouteStop, 0, len(r.Stops))
	for _, stop := range r.Stops {
		stops = append(stops, ctdf.RouteStop{
			StopRef:            stop.StopID.String(),
			StopName:           stop.StopName,
			SequenceNumber:     int(math.Round(stop.Sequence.Value)),
			DistanceFromOrigin: stop.Distance.Value,
			ExpectedTravelTime: int(math.Round(stop.TravelTime.Value)),
		})
	}
	route.Stops = ctdf.NormaliseStopSequence(stops, representation)

	for _, schedule := range r.Schedule {
		routeSchedule := ctdf.RouteSchedule{
			DayType: ctdf.DayType(schedule.DayType),
			Trips:   []ctdf.ScheduleTrip{},
		}

		copier.Copy(&routeSchedule.Trips, &schedule.Trips)

		route.Schedule = append(route.Schedule, routeSchedule)
	}

	return route
}

func (r *BusRecord) ToCTDF(now time.Time) *ctdf.Vehicle {
	vehicle := &ctdf.Vehicle{
		PrimaryIdentifier:    r.VehicleID.String(),
		ModificationDateTime: now,
		DataSource:           dataSource("buses", now),
		RegistrationNumber:   r.RegistrationNumber,
		RouteRef:             r.RouteID.String(),
		Capacity:             int(math.Round(r.Capacity.Value)),
		Active:               r.IsActive,
	}

	copier.Copy(&vehicle.Features, r)

	if r.LastServiceDate != "" {
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if serviceDate, err := time.Parse(layout, r.LastServiceDate); err == nil {
				vehicle.LastServiceDate = &serviceDate
				break
			}
		}
	}

	return vehicle
}

func (r *GPSRecord) ToCTDF(now time.Time) *ctdf.VehiclePosition {
	timestamp, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		timestamp = now
	}

	return &ctdf.VehiclePosition{
		VehicleRef:           r.VehicleID.String(),
		RouteRef:             r.RouteID.String(),
		CreationDateTime:     now,
		ModificationDateTime: now,
		DataSource:           dataSource("gps", now),
		Location:             *ctdf.NewPoint(r.Longitude.Value, r.Latitude.Value),
		Speed:                r.Speed.Pointer(),
		Heading:              r.Heading.Value,
		LastStopRef:          r.LastStopID.String(),
		NextStopRef:          r.NextStopID.String(),
		OccupancyLevel:       ctdf.OccupancyLevel(r.Occupancy),
		Delay:                r.Delay.Pointer(),
		Timestamp:            timestamp.UTC(),
	}
}
