package ctdf

import "time"

type ArrivalEstimate struct {
	RouteRef   string `json:"routeId" groups:"basic"`
	VehicleRef string `json:"busId" groups:"basic"`

	ETAMinutes int `json:"eta" groups:"basic"`

	Delay *float64 `json:"delay,omitempty" groups:"basic"`

	NextStopRef       string    `json:"nextStopId,omitempty" groups:"detailed"`
	StopsAway         int       `json:"stopsAway" groups:"detailed"`
	RemainingDistance float64   `json:"remainingDistance" groups:"detailed"` // metres
	LastUpdated       time.Time `json:"lastUpdated" groups:"detailed"`
}
