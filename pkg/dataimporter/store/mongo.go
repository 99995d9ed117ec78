package store

import (
	"context"
	"time"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/busline/busline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore writes through the global database connection
type MongoStore struct{}

func upsertModel(filter bson.M, record interface{}, now time.Time) (mongo.WriteModel, error) {
	bsonRep, err := bson.Marshal(record)
	if err != nil {
		return nil, err
	}

	var fields bson.M
	if err := bson.Unmarshal(bsonRep, &fields); err != nil {
		return nil, err
	}
	delete(fields, "_id")
	delete(fields, "creationdatetime")

	return mongo.NewUpdateOneModel().
		SetFilter(filter).
		SetUpdate(bson.M{
			"$set":         fields,
			"$setOnInsert": bson.M{"creationdatetime": now},
		}).
		SetUpsert(true), nil
}

func bulkUpsert(ctx context.Context, collectionName string, operations []mongo.WriteModel) (UpsertResult, error) {
	if len(operations) == 0 {
		return UpsertResult{}, nil
	}

	collection := database.GetCollection(collectionName)
	result, err := collection.BulkWrite(ctx, operations, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return UpsertResult{}, err
	}

	return UpsertResult{
		Inserted: result.UpsertedCount,
		Updated:  result.ModifiedCount,
	}, nil
}

func (m MongoStore) UpsertStops(ctx context.Context, stops []*ctdf.Stop) (UpsertResult, error) {
	now := time.Now()

	var operations []mongo.WriteModel
	for _, stop := range stops {
		model, err := upsertModel(bson.M{"primaryidentifier": stop.PrimaryIdentifier}, stop, now)
		if err != nil {
			return UpsertResult{}, err
		}
		operations = append(operations, model)
	}

	return bulkUpsert(ctx, database.StopsCollection, operations)
}

func (m MongoStore) UpsertRoutes(ctx context.Context, routes []*ctdf.Route) (UpsertResult, error) {
	now := time.Now()

	var operations []mongo.WriteModel
	for _, route := range routes {
		model, err := upsertModel(bson.M{"primaryidentifier": route.PrimaryIdentifier}, route, now)
		if err != nil {
			return UpsertResult{}, err
		}
		operations = append(operations, model)
	}

	return bulkUpsert(ctx, database.RoutesCollection, operations)
}

func (m MongoStore) UpsertVehicles(ctx context.Context, vehicles []*ctdf.Vehicle) (UpsertResult, error) {
	now := time.Now()

	var operations []mongo.WriteModel
	for _, vehicle := range vehicles {
		model, err := upsertModel(bson.M{"primaryidentifier": vehicle.PrimaryIdentifier}, vehicle, now)
		if err != nil {
			return UpsertResult{}, err
		}
		operations = append(operations, model)
	}

	return bulkUpsert(ctx, database.VehiclesCollection, operations)
}

func (m MongoStore) UpsertPositions(ctx context.Context, positions []*ctdf.VehiclePosition) error {
	now := time.Now()

	var operations []mongo.WriteModel
	for _, position := range positions {
		model, err := upsertModel(bson.M{
			"vehicleref": position.VehicleRef,
			"timestamp":  position.Timestamp,
		}, position, now)
		if err != nil {
			return err
		}
		operations = append(operations, model)
	}

	_, err := bulkUpsert(ctx, database.VehiclePositionsCollection, operations)
	return err
}

func (m MongoStore) DeletePositionsBefore(ctx context.Context, before time.Time) (int64, error) {
	collection := database.GetCollection(database.VehiclePositionsCollection)

	result, err := collection.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

func (m MongoStore) AllStops(ctx context.Context) ([]*ctdf.Stop, error) {
	collection := database.GetCollection(database.StopsCollection)

	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "primaryidentifier", Value: 1}}))
	if err != nil {
		return nil, err
	}

	stops := []*ctdf.Stop{}
	if err := cursor.All(ctx, &stops); err != nil {
		return nil, err
	}

	return stops, nil
}

func (m MongoStore) AllRoutes(ctx context.Context) ([]*ctdf.Route, error) {
	collection := database.GetCollection(database.RoutesCollection)

	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "primaryidentifier", Value: 1}}))
	if err != nil {
		return nil, err
	}

	routes := []*ctdf.Route{}
	if err := cursor.All(ctx, &routes); err != nil {
		return nil, err
	}

	return routes, nil
}
