package ctdf

import (
	"sort"
	"time"
)

type Route struct {
	PrimaryIdentifier string `groups:"basic"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`

	RouteNumber string `groups:"basic"`
	PrimaryName string `groups:"basic"`
	Origin      string `groups:"basic"`
	Destination string `groups:"basic"`

	Distance  float64 `groups:"basic"` // kilometres
	Frequency int     `groups:"basic"` // minutes

	Stops    []RouteStop     `groups:"detailed"`
	Schedule []RouteSchedule `groups:"detailed"`

	Active bool `groups:"internal"`
}

type RouteStop struct {
	StopRef  string `groups:"basic"`
	StopName string `groups:"basic"`

	SequenceNumber int `groups:"basic"`

	// Metres from the first stop of the route
	DistanceFromOrigin float64 `groups:"basic"`

	// Minutes from the first stop of the route
	ExpectedTravelTime int `groups:"detailed"`
}

type RouteSchedule struct {
	DayType DayType        `groups:"detailed"`
	Trips   []ScheduleTrip `groups:"detailed"`
}

type ScheduleTrip struct {
	DepartureTime string `groups:"detailed"` // HH:MM:SS
	ArrivalTime   string `groups:"detailed"` // HH:MM:SS
	BusType       string `groups:"detailed"`
}

type DayType string

const (
	DayTypeWeekday  DayType = "WEEKDAY"
	DayTypeSaturday DayType = "SATURDAY"
	DayTypeSunday   DayType = "SUNDAY"
	DayTypeHoliday  DayType = "HOLIDAY"
)

func (r *Route) GetSchedule(dayType DayType) *RouteSchedule {
	for i := range r.Schedule {
		if r.Schedule[i].DayType == dayType {
			return &r.Schedule[i]
		}
	}

	return nil
}

type DistanceRepresentation string

const (
	DistanceRepresentationCumulative  DistanceRepresentation = "cumulative"
	DistanceRepresentationIncremental DistanceRepresentation = "incremental"
)

// NormaliseStopSequence sorts the stops by sequence number and converts the distances into
// metres from origin. For incremental input the DistanceFromOrigin field holds the distance from the
// previous stop and the first stop of the route is always at 0.
func NormaliseStopSequence(stops []RouteStop, representation DistanceRepresentation) []RouteStop {
	normalised := make([]RouteStop, len(stops))
	copy(normalised, stops)

	sort.SliceStable(normalised, func(i, j int) bool {
		return normalised[i].SequenceNumber < normalised[j].SequenceNumber
	})

	if representation != DistanceRepresentationIncremental {
		return normalised
	}

	cumulative := 0.0
	for i := range normalised {
		if i > 0 {
			cumulative += normalised[i].DistanceFromOrigin
		}
		normalised[i].DistanceFromOrigin = cumulative
	}

	return normalised
}
