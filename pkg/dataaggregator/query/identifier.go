package query

import "go.mongodb.org/mongo-driver/bson"

// byIdentifier never returns an empty filter, so a blank identifier matches nothing instead of
// the first document in the collection
func byIdentifier(identifier string) bson.M {
	return bson.M{"primaryidentifier": identifier}
}

type Stop struct {
	PrimaryIdentifier string
}

func (s *Stop) ToBson() bson.M {
	return byIdentifier(s.PrimaryIdentifier)
}

type Route struct {
	PrimaryIdentifier string
}

func (r *Route) ToBson() bson.M {
	return byIdentifier(r.PrimaryIdentifier)
}

type Vehicle struct {
	PrimaryIdentifier string
}

func (v *Vehicle) ToBson() bson.M {
	return byIdentifier(v.PrimaryIdentifier)
}
