package upstream

type StopRecord struct {
	StopID    Identifier `json:"stop_id" validate:"required"`
	StopName  string     `json:"stop_name" validate:"required"`
	Latitude  Number     `json:"latitude" validate:"required"`
	Longitude Number     `json:"longitude" validate:"required"`
	Address   string     `json:"address"`

	HasShelter   bool `json:"has_shelter"`
	HasSeating   bool `json:"has_seating"`
	HasDisplay   bool `json:"has_display" copier:"HasDisplayBoard"`
	IsAccessible bool `json:"is_accessible"`

	Routes []Identifier `json:"routes"`
}

type RouteRecord struct {
	RouteID     Identifier `json:"route_id" validate:"required"`
	RouteName   string     `json:"route_name" validate:"required"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	Distance    Number     `json:"distance"`
	Frequency   Number     `json:"frequency"`

	Stops    []RouteStopRecord `json:"stops" validate:"dive"`
	Schedule []ScheduleRecord  `json:"schedule" validate:"dive"`
}

type RouteStopRecord struct {
	StopID     Identifier `json:"stop_id" validate:"required"`
	StopName   string     `json:"stop_name"`
	Sequence   Number     `json:"sequence" validate:"required"`
	Distance   Number     `json:"distance"`
	TravelTime Number     `json:"travel_time"`
}

type ScheduleRecord struct {
	DayType string        `json:"day_type" validate:"required,oneof=WEEKDAY SATURDAY SUNDAY HOLIDAY"`
	Trips   []TripRecord `json:"trips" validate:"dive"`
}

type TripRecord struct {
	DepartureTime string `json:"departure_time" validate:"required,clocktime"`
	ArrivalTime   string `json:"arrival_time" validate:"required,clocktime"`
	BusType       string `json:"bus_type"`
}

type BusRecord struct {
	VehicleID          Identifier `json:"vehicle_id" validate:"required"`
	RegistrationNumber string     `json:"registration_number" validate:"required"`
	RouteID            Identifier `json:"route_id"`
	Capacity           Number     `json:"capacity"`
	IsActive           bool       `json:"is_active"`
	LastServiceDate    string     `json:"last_service_date" validate:"omitempty,datetime=2006-01-02|rfc3339"`

	IsAC                   bool `json:"is_ac"`
	IsElectric             bool `json:"is_electric"`
	HasWifi                bool `json:"has_wifi"`
	IsWheelchairAccessible bool `json:"is_wheelchair_accessible"`
}

type GPSRecord struct {
	VehicleID  Identifier `json:"vehicle_id" validate:"required"`
	RouteID    Identifier `json:"route_id" validate:"required"`
	Latitude   Number     `json:"latitude" validate:"required"`
	Longitude  Number     `json:"longitude" validate:"required"`
	Speed      Number     `json:"speed"`
	Heading    Number     `json:"heading"`
	LastStopID Identifier `json:"last_stop_id"`
	NextStopID Identifier `json:"next_stop_id"`
	Occupancy  string     `json:"occupancy" validate:"omitempty,oneof=LOW MEDIUM HIGH VERY_HIGH"`
	Delay      Number     `json:"delay"`
	Timestamp  string     `json:"timestamp" validate:"required,rfc3339"`
}
