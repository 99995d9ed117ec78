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

func (s Source) VehicleQuery(ctx context.Context, vehicleQuery query.Vehicle) (*ctdf.Vehicle, error) {
	vehiclesCollection := database.GetCollection(database.VehiclesCollection)

	var vehicle *ctdf.Vehicle
	err := vehiclesCollection.FindOne(ctx, vehicleQuery.ToBson()).Decode(&vehicle)

	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && vehicle == nil) {
		return nil, fmt.Errorf("vehicle %s: %w", vehicleQuery.PrimaryIdentifier, ctdf.ErrNotFound)
	} else if err != nil {
		return nil, err
	}

	return vehicle, nil
}
