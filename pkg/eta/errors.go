package eta

import "errors"

var (
	ErrStopNotFound  = errors.New("could not find a matching Stop")
	ErrRouteNotFound = errors.New("could not find a matching Route serving the Stop")

	// ErrInvalidSample marks a position that cannot be placed on its route. These are skipped
	// and never returned to callers.
	ErrInvalidSample = errors.New("vehicle position cannot be anchored to route")

	errNoForwardPath = errors.New("vehicle has no forward path to stop")
)
