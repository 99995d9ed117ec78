package global

import (
	"github.com/busline/busline/pkg/dataaggregator"
	"github.com/busline/busline/pkg/dataaggregator/source/databaselookup"
)

// Setup registers the production sources on the global aggregator. Redis and MongoDB must be
// connected first.
func Setup() {
	dataaggregator.GlobalAggregator = dataaggregator.Aggregator{}

	databaseLookupSource := databaselookup.Source{}
	databaseLookupSource.Setup()
	dataaggregator.GlobalAggregator.RegisterSource(databaseLookupSource)
}
