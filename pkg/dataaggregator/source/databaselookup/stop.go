package databaselookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/dataaggregator/query"
	"github.com/busline/busline/pkg/database"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s Source) StopQuery(ctx context.Context, stopQuery query.Stop) (*ctdf.Stop, error) {
	stopsCollection := database.GetCollection(database.StopsCollection)

	var stop *ctdf.Stop
	err := stopsCollection.FindOne(ctx, stopQuery.ToBson()).Decode(&stop)

	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && stop == nil) {
		return nil, fmt.Errorf("stop %s: %w", stopQuery.PrimaryIdentifier, ctdf.ErrNotFound)
	} else if err != nil {
		return nil, err
	}

	return stop, nil
}
