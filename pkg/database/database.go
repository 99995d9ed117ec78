package database

import (
	"context"
	"time"

	"github.com/busline/busline/pkg/util"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoInstance struct {
	Client   *mongo.Client
	Database *mongo.Database
}

var MongoGlobalInstance *MongoInstance

const defaultMongoConnectionString = "mongodb://localhost:27017/"
const defaultMongoDatabase = "busline"

func Connect() error {
	connectionString := defaultMongoConnectionString
	dbName := defaultMongoDatabase

	env := util.GetEnvironmentVariables()

	if env["BUSLINE_MONGODB_CONNECTION"] != "" {
		connectionString = env["BUSLINE_MONGODB_CONNECTION"]
	}

	if env["BUSLINE_MONGODB_DATABASE"] != "" {
		dbName = env["BUSLINE_MONGODB_DATABASE"]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return err
	}

	MongoGlobalInstance = &MongoInstance{
		Client:   client,
		Database: client.Database(dbName),
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		return err
	}

	log.Info().Str("database", dbName).Msg("Connected to MongoDB")

	createIndexes()

	return nil
}

func Disconnect() {
	if MongoGlobalInstance == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := MongoGlobalInstance.Client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Disconnecting from MongoDB")
	}
}

func GetCollection(collectionName string) *mongo.Collection {
	return MongoGlobalInstance.Database.Collection(collectionName)
}
