package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/busline/busline/pkg/util"
	"github.com/redis/go-redis/v9"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

const queueConnectionTag = "busline"

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["BUSLINE_REDIS_ADDRESS"] != "" {
		address = env["BUSLINE_REDIS_ADDRESS"]
	}

	if env["BUSLINE_REDIS_PASSWORD"] != "" {
		password = env["BUSLINE_REDIS_PASSWORD"]
	}

	if env["BUSLINE_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["BUSLINE_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	return ConnectWithOptions(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})
}

// ConnectWithOptions sets up the global client and queue connection against an explicit server
func ConnectWithOptions(opts *redis.Options) error {
	Client = redis.NewClient(opts)

	if err := Client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	var err error
	QueueConnection, err = rmq.OpenConnectionWithRedisClient(queueConnectionTag, Client, nil)
	if err != nil {
		return err
	}

	return nil
}
