package ctdf

import "time"

// PositionRetentionWindow is how long a position sample is considered current
const PositionRetentionWindow = 24 * time.Hour

type VehiclePosition struct {
	VehicleRef string `groups:"basic"`
	RouteRef   string `groups:"basic"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`

	Location Location `groups:"basic"`

	// km/h, nil when the provider did not report one
	Speed   *float64 `groups:"basic"`
	Heading float64  `groups:"basic"`

	LastStopRef string `groups:"basic"`
	NextStopRef string `groups:"basic"`

	OccupancyLevel OccupancyLevel `groups:"basic"`

	// Minutes behind schedule, negative when early
	Delay *float64 `groups:"basic"`

	Timestamp time.Time `groups:"basic"`
}

type OccupancyLevel string

const (
	OccupancyLevelLow      OccupancyLevel = "LOW"
	OccupancyLevelMedium   OccupancyLevel = "MEDIUM"
	OccupancyLevelHigh     OccupancyLevel = "HIGH"
	OccupancyLevelVeryHigh OccupancyLevel = "VERY_HIGH"
)

// IsCurrent reports whether the sample is younger than the retention window at the given time
func (p *VehiclePosition) IsCurrent(now time.Time, retention time.Duration) bool {
	if retention <= 0 {
		retention = PositionRetentionWindow
	}

	return !p.Timestamp.Before(now.Add(-retention))
}
