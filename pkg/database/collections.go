package database

import (
	"context"

	"github.com/busline/busline/pkg/ctdf"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	StopsCollection            = "stops"
	RoutesCollection           = "routes"
	VehiclesCollection         = "vehicles"
	VehiclePositionsCollection = "vehicle_positions"
)

func createIndexes() {
	createStopsIndexes()
	createRoutesIndexes()
	createVehiclesIndexes()
	createVehiclePositionsIndexes()
}

func createStopsIndexes() {
	stopsCollection := GetCollection(StopsCollection)
	_, err := stopsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "location.coordinates", Value: "2d"}},
		},
		{
			Keys: bson.D{{Key: "routes", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Str("collection", StopsCollection).Msg("Creating Index")
	}
}

func createRoutesIndexes() {
	routesCollection := GetCollection(RoutesCollection)
	_, err := routesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "stops.stopref", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "active", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Str("collection", RoutesCollection).Msg("Creating Index")
	}
}

func createVehiclesIndexes() {
	vehiclesCollection := GetCollection(VehiclesCollection)
	_, err := vehiclesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "routeref", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Str("collection", VehiclesCollection).Msg("Creating Index")
	}
}

func createVehiclePositionsIndexes() {
	positionsCollection := GetCollection(VehiclePositionsCollection)
	_, err := positionsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "routeref", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "vehicleref", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ctdf.PositionRetentionWindow.Seconds())),
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Str("collection", VehiclePositionsCollection).Msg("Creating Index")
	}
}
