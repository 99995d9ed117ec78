package topology

import "errors"

var (
	ErrNotFound        = errors.New("not found in route topology")
	ErrOutOfOrder      = errors.New("destination stop is not ahead of origin stop")
	ErrInvalidTopology = errors.New("invalid route topology")
)
