package query

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// VehiclePositions matches samples observed at or after Since. An empty RouteRef matches every route.
type VehiclePositions struct {
	RouteRef string
	Since    time.Time
}

func (v *VehiclePositions) ToBson() bson.M {
	filter := bson.M{
		"timestamp": bson.M{"$gte": v.Since},
	}

	if v.RouteRef != "" {
		filter["routeref"] = v.RouteRef
	}

	return filter
}
