package stats

import (
	"context"
	"sync"
	"time"

	"github.com/busline/busline/pkg/database"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

type RecordsStats struct {
	Stops            int64     `json:"stops"`
	Routes           int64     `json:"routes"`
	Vehicles         int64     `json:"vehicles"`
	VehiclePositions int64     `json:"vehiclePositions"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CountFunc returns the number of documents in a collection
type CountFunc func(ctx context.Context, collection string) (int64, error)

func CountMongoCollection(ctx context.Context, collection string) (int64, error) {
	return database.GetCollection(collection).CountDocuments(ctx, bson.D{})
}

// Collector periodically counts the stored records so status requests never hit the database
type Collector struct {
	Count CountFunc

	mutex   sync.RWMutex
	current RecordsStats
}

func NewCollector(count CountFunc) *Collector {
	if count == nil {
		count = CountMongoCollection
	}

	return &Collector{Count: count}
}

func (c *Collector) Current() RecordsStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.current
}

func (c *Collector) Update(ctx context.Context) error {
	updated := RecordsStats{UpdatedAt: time.Now()}

	counts := []struct {
		collection string
		target     *int64
	}{
		{database.StopsCollection, &updated.Stops},
		{database.RoutesCollection, &updated.Routes},
		{database.VehiclesCollection, &updated.Vehicles},
		{database.VehiclePositionsCollection, &updated.VehiclePositions},
	}

	for _, count := range counts {
		value, err := c.Count(ctx, count.collection)
		if err != nil {
			return err
		}
		*count.target = value
	}

	c.mutex.Lock()
	c.current = updated
	c.mutex.Unlock()

	return nil
}

func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.Update(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to update records stats")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
