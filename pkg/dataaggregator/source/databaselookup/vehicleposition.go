package databaselookup

import (
	"context"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/dataaggregator/query"
	"github.com/busline/busline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s Source) VehiclePositionsQuery(ctx context.Context, positionsQuery query.VehiclePositions) ([]*ctdf.VehiclePosition, error) {
	positionsCollection := database.GetCollection(database.VehiclePositionsCollection)

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := positionsCollection.Find(ctx, positionsQuery.ToBson(), opts)
	if err != nil {
		return nil, err
	}

	positions := []*ctdf.VehiclePosition{}
	if err := cursor.All(ctx, &positions); err != nil {
		return nil, err
	}

	return positions, nil
}
