package query

import "go.mongodb.org/mongo-driver/bson"

// RoutesByStop matches every active route calling at the stop
type RoutesByStop struct {
	StopRef string
}

func (r *RoutesByStop) ToBson() bson.M {
	return bson.M{
		"active":        true,
		"stops.stopref": r.StopRef,
	}
}

// ActiveRoutes matches every route the topology index should be built from
type ActiveRoutes struct{}

func (r *ActiveRoutes) ToBson() bson.M {
	return bson.M{"active": true}
}
