package ctdf

import "math"

const earthRadiusMetres = 6371000.0

type Location struct {
	Type        string    `json:"-" groups:"basic"`
	Coordinates []float64 `json:"coordinates" groups:"basic"`
}

// NewPoint returns a GeoJSON style point. Coordinates are stored longitude first.
func NewPoint(longitude float64, latitude float64) *Location {
	return &Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

func (l *Location) Longitude() float64 {
	if l == nil || len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[0]
}

func (l *Location) Latitude() float64 {
	if l == nil || len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[1]
}

func (l *Location) Valid() bool {
	if l == nil || len(l.Coordinates) != 2 {
		return false
	}

	return l.Latitude() >= -90 && l.Latitude() <= 90 && l.Longitude() >= -180 && l.Longitude() <= 180
}

// Distance returns the great circle distance in metres between two points
func (l *Location) Distance(other *Location) float64 {
	lat1 := l.Latitude() * math.Pi / 180
	lat2 := other.Latitude() * math.Pi / 180
	deltaLat := (other.Latitude() - l.Latitude()) * math.Pi / 180
	deltaLon := (other.Longitude() - l.Longitude()) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	return earthRadiusMetres * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
