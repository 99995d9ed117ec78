package eta

import (
	"time"

	"github.com/busline/busline/pkg/ctdf"
)

const (
	// DefaultSpeedKmh is a typical urban bus speed under congestion
	DefaultSpeedKmh = 15.0

	// DefaultDwellMinutesPerStop covers boarding and alighting at each stop on the way
	DefaultDwellMinutesPerStop = 0.5
)

type Options struct {
	DefaultSpeedKmh     float64
	DwellMinutesPerStop float64
	RetentionWindow     time.Duration
}

func DefaultOptions() Options {
	return Options{
		DefaultSpeedKmh:     DefaultSpeedKmh,
		DwellMinutesPerStop: DefaultDwellMinutesPerStop,
		RetentionWindow:     ctdf.PositionRetentionWindow,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()

	if !(o.DefaultSpeedKmh > 0) {
		o.DefaultSpeedKmh = defaults.DefaultSpeedKmh
	}
	if !(o.DwellMinutesPerStop > 0) {
		o.DwellMinutesPerStop = defaults.DwellMinutesPerStop
	}
	if o.RetentionWindow <= 0 {
		o.RetentionWindow = defaults.RetentionWindow
	}

	return o
}
