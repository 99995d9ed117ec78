package eta

import "math"

// ceilingTolerance stops floating point noise from pushing an exact minute up to the next one
const ceilingTolerance = 1e-9

// CalculateMinutes converts a remaining distance into a whole minute arrival estimate.
// stops is the number of stops in the sub-sequence including both the anchor and the target.
func CalculateMinutes(distanceMetres float64, speedKmh float64, stops int, options Options) int {
	options = options.withDefaults()

	if !(speedKmh > 0) || math.IsInf(speedKmh, 0) {
		speedKmh = options.DefaultSpeedKmh
	}
	if !(distanceMetres > 0) || math.IsInf(distanceMetres, 0) {
		distanceMetres = 0
	}
	if stops < 0 {
		stops = 0
	}

	travelMinutes := (distanceMetres * 60) / (speedKmh * 1000)
	bufferMinutes := options.DwellMinutesPerStop * float64(stops)

	return int(math.Ceil(travelMinutes + bufferMinutes - ceilingTolerance))
}
