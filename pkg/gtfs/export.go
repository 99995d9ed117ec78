package gtfs

import (
	"sort"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/senseyeio/duration"
)

const (
	serviceID       = "everyday"
	routeTypeBus    = 3
	routeColour     = "0000FF"
	routeTextColour = "FFFFFF"
	dateFormat      = "20060102"

	// How long the single calendar entry is valid for from the export date
	calendarValidity = "P1Y"
)

// Day types a trip is exported for, holidays have no calendar of their own
var exportedDayTypes = []ctdf.DayType{ctdf.DayTypeWeekday, ctdf.DayTypeSaturday, ctdf.DayTypeSunday}

type AgencyConfig struct {
	ID       string
	Name     string
	URL      string
	Timezone string
	Language string
	Phone    string
	FareURL  string
}

func AgencyConfigFromEnvironment() AgencyConfig {
	env := util.GetEnvironmentVariables()

	config := AgencyConfig{
		ID:       "BMTC",
		Name:     "Bangalore Metropolitan Transport Corporation",
		URL:      "https://mybmtc.karnataka.gov.in",
		Timezone: "Asia/Kolkata",
		Language: "en",
		Phone:    env["BUSLINE_GTFS_AGENCY_PHONE"],
		FareURL:  env["BUSLINE_GTFS_AGENCY_FARE_URL"],
	}

	if env["BUSLINE_GTFS_AGENCY_ID"] != "" {
		config.ID = env["BUSLINE_GTFS_AGENCY_ID"]
	}
	if env["BUSLINE_GTFS_AGENCY_NAME"] != "" {
		config.Name = env["BUSLINE_GTFS_AGENCY_NAME"]
	}
	if env["BUSLINE_GTFS_AGENCY_URL"] != "" {
		config.URL = env["BUSLINE_GTFS_AGENCY_URL"]
	}
	if env["BUSLINE_GTFS_AGENCY_TIMEZONE"] != "" {
		config.Timezone = env["BUSLINE_GTFS_AGENCY_TIMEZONE"]
	}

	return config
}

// BuildFeed converts the stored network into GTFS tables. Every route gets one trip per day type
// using the first scheduled departure of that day.
func BuildFeed(agency AgencyConfig, stops []*ctdf.Stop, routes []*ctdf.Route, now time.Time) (*Feed, error) {
	validity, err := duration.ParseISO8601(calendarValidity)
	if err != nil {
		return nil, err
	}

	feed := &Feed{
		Agencies: []*Agency{{
			ID:       agency.ID,
			Name:     agency.Name,
			URL:      agency.URL,
			Timezone: agency.Timezone,
			Language: agency.Language,
			Phone:    agency.Phone,
			FareURL:  agency.FareURL,
		}},
		Stops:     []*Stop{},
		Routes:    []*Route{},
		Trips:     []*Trip{},
		StopTimes: []*StopTime{},
		Calendars: []*Calendar{{
			ServiceID: serviceID,
			Monday:    1,
			Tuesday:   1,
			Wednesday: 1,
			Thursday:  1,
			Friday:    1,
			Saturday:  1,
			Sunday:    1,
			StartDate: now.Format(dateFormat),
			EndDate:   validity.Shift(now).Format(dateFormat),
		}},
	}

	for _, stop := range stops {
		wheelchair := 0
		if stop.Amenities.IsAccessible {
			wheelchair = 1
		}

		feed.Stops = append(feed.Stops, &Stop{
			ID:         stop.PrimaryIdentifier,
			Name:       stop.PrimaryName,
			Latitude:   stop.Location.Latitude(),
			Longitude:  stop.Location.Longitude(),
			Wheelchair: wheelchair,
		})
	}

	for _, route := range routes {
		feed.Routes = append(feed.Routes, &Route{
			ID:         route.PrimaryIdentifier,
			AgencyID:   agency.ID,
			ShortName:  route.PrimaryIdentifier,
			LongName:   route.PrimaryName,
			Type:       routeTypeBus,
			Colour:     routeColour,
			TextColour: routeTextColour,
		})

		routeStops := ctdf.NormaliseStopSequence(route.Stops, ctdf.DistanceRepresentationCumulative)

		for _, dayType := range exportedDayTypes {
			schedule := route.GetSchedule(dayType)
			if schedule == nil || len(schedule.Trips) == 0 {
				continue
			}

			tripID := route.PrimaryIdentifier + "_" + string(dayType) + "_1"

			stopTimes, err := buildStopTimes(tripID, routeStops, schedule.Trips[0])
			if err != nil {
				log.Error().Err(err).Str("trip", tripID).Msg("Skipping trip with invalid times")
				continue
			}

			feed.Trips = append(feed.Trips, &Trip{
				RouteID:     route.PrimaryIdentifier,
				ServiceID:   serviceID,
				ID:          tripID,
				Headsign:    route.Destination,
				DirectionID: 0,
				// No shapes.txt is written so trips carry no shape reference
			})
			feed.StopTimes = append(feed.StopTimes, stopTimes...)
		}
	}

	sort.SliceStable(feed.Stops, func(i, j int) bool {
		return feed.Stops[i].ID < feed.Stops[j].ID
	})

	return feed, nil
}

// buildStopTimes offsets the trip departure by each stop's expected travel time. The last stop
// uses the scheduled arrival instead.
func buildStopTimes(tripID string, stops []ctdf.RouteStop, trip ctdf.ScheduleTrip) ([]*StopTime, error) {
	stopTimes := make([]*StopTime, 0, len(stops))

	for i, stop := range stops {
		var clockTime string
		var err error

		if i == len(stops)-1 {
			clockTime, err = util.AddMinutesToClockTime(trip.ArrivalTime, 0)
		} else {
			clockTime, err = util.AddMinutesToClockTime(trip.DepartureTime, stop.ExpectedTravelTime)
		}
		if err != nil {
			return nil, err
		}

		stopTimes = append(stopTimes, &StopTime{
			TripID:        tripID,
			ArrivalTime:   clockTime,
			DepartureTime: clockTime,
			StopID:        stop.StopRef,
			StopSequence:  stop.SequenceNumber,
		})
	}

	return stopTimes, nil
}
