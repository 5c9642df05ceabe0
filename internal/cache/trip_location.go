package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const tripLocationKeyPrefix = "trip:location:"

// TripLocationCache holds the assigned driver's latest position for one
// active trip, for rider-side polling. Scoped strictly to a trip: written
// while the trip is live, discarded when it reaches a terminal state. The TTL
// is a backstop for trips that never get explicitly cleared.
type TripLocationCache interface {
	Set(ctx context.Context, tripID string, lat, lng float64) error
	Get(ctx context.Context, tripID string) (*DriverLocation, error)
	Clear(ctx context.Context, tripID string) error
}

type tripLocationCache struct {
	redis *redis.Client
}

func NewTripLocationCache(redisClient *redis.Client) TripLocationCache {
	return &tripLocationCache{redis: redisClient}
}

func (c *tripLocationCache) Set(ctx context.Context, tripID string, lat, lng float64) error {
	loc := DriverLocation{Lat: lat, Lng: lng, UpdatedAt: time.Now().Unix()}
	data, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, tripLocationKeyPrefix+tripID, data, locationTTL).Err()
}

func (c *tripLocationCache) Get(ctx context.Context, tripID string) (*DriverLocation, error) {
	data, err := c.redis.Get(ctx, tripLocationKeyPrefix+tripID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var loc DriverLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

func (c *tripLocationCache) Clear(ctx context.Context, tripID string) error {
	return c.redis.Del(ctx, tripLocationKeyPrefix+tripID).Err()
}
