package gtfs

type Agency struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
	Language string `csv:"agency_lang"`
	Phone    string `csv:"agency_phone"`
	FareURL  string `csv:"agency_fare_url"`
}

type Stop struct {
	ID         string  `csv:"stop_id"`
	Name       string  `csv:"stop_name"`
	Latitude   float64 `csv:"stop_lat"`
	Longitude  float64 `csv:"stop_lon"`
	Wheelchair int     `csv:"wheelchair_boarding"`
}

type Route struct {
	ID         string `csv:"route_id"`
	AgencyID   string `csv:"agency_id"`
	ShortName  string `csv:"route_short_name"`
	LongName   string `csv:"route_long_name"`
	Type       int    `csv:"route_type"`
	Colour     string `csv:"route_color"`
	TextColour string `csv:"route_text_color"`
}

type Trip struct {
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	ID          string `csv:"trip_id"`
	Headsign    string `csv:"trip_headsign"`
	DirectionID int    `csv:"direction_id"`
	ShapeID     string `csv:"shape_id"`
}

type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	PickupType    int    `csv:"pickup_type"`
	DropOffType   int    `csv:"drop_off_type"`
}

type Calendar struct {
	ServiceID string `csv:"service_id"`
	Monday    int    `csv:"monday"`
	Tuesday   int    `csv:"tuesday"`
	Wednesday int    `csv:"wednesday"`
	Thursday  int    `csv:"thursday"`
	Friday    int    `csv:"friday"`
	Saturday  int    `csv:"saturday"`
	Sunday    int    `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

// Feed holds every table of a static export
type Feed struct {
	Agencies  []*Agency
	Stops     []*Stop
	Routes    []*Route
	Trips     []*Trip
	StopTimes []*StopTime
	Calendars []*Calendar
}
