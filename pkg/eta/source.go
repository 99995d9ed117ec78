package eta

import (
	"context"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/topology"
)

// DataSource supplies the records the Estimator works over. Lookups that find nothing return an
// error wrapping ctdf.ErrNotFound.
type DataSource interface {
	GetStop(ctx context.Context, stopID string) (*ctdf.Stop, error)
	GetActivePositions(ctx context.Context, routeID string, since time.Time) ([]*ctdf.VehiclePosition, error)
}

type TopologyProvider interface {
	Current() *topology.Index
}
