package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverGeoKey        = "drivers:locations"
	driverMetaKeyPrefix = "driver:meta:"
	locationTTL         = 5 * time.Minute
)

type DriverLocation struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	UpdatedAt int64   `json:"updated_at"`
}

type DriverWithDistance struct {
	DriverID string
	Distance float64 // in km
}

// DriverLocationCache is the geospatial index over the moving driver
// population. Writes are last-write-wins; staleness is enforced at query
// time rather than by eager eviction, so a burst of reports never triggers
// a matching delete storm.
type DriverLocationCache interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64, inTrip bool) error
	GetDriverLocation(ctx context.Context, driverID string) (*DriverLocation, error)
	GetNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]DriverWithDistance, error)
	RemoveDriver(ctx context.Context, driverID string) error
}

type driverLocationCache struct {
	redis     *redis.Client
	staleness time.Duration
}

func NewDriverLocationCache(redisClient *redis.Client, staleness time.Duration) DriverLocationCache {
	return &driverLocationCache{redis: redisClient, staleness: staleness}
}

func (c *driverLocationCache) UpdateLocation(ctx context.Context, driverID string, lat, lng float64, inTrip bool) error {
	if err := c.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err(); err != nil {
		return err
	}

	now := time.Now()
	// in_trip and pooling are mutually exclusive by construction
	if err := c.redis.HSet(ctx, driverMetaKeyPrefix+driverID, map[string]interface{}{
		"online":     "true",
		"pooling":    strconv.FormatBool(!inTrip),
		"in_trip":    strconv.FormatBool(inTrip),
		"updated_at": strconv.FormatInt(now.Unix(), 10),
	}).Err(); err != nil {
		return err
	}

	loc := DriverLocation{Lat: lat, Lng: lng, UpdatedAt: now.Unix()}
	locJSON, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, driverMetaKeyPrefix+driverID+":location", locJSON, locationTTL).Err()
}

func (c *driverLocationCache) GetDriverLocation(ctx context.Context, driverID string) (*DriverLocation, error) {
	data, err := c.redis.Get(ctx, driverMetaKeyPrefix+driverID+":location").Bytes()
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

// GetNearbyDrivers returns up to limit drivers within radiusKm of the point,
// nearest first. Drivers that are not pooling, or whose last report is older
// than the staleness window, are filtered out even if still in the geo set.
func (c *driverLocationCache) GetNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]DriverWithDistance, error) {
	locations, err := c.redis.GeoRadius(ctx, driverGeoKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Count:    limit * 4, // over-fetch; meta filters below thin the set
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-c.staleness).Unix()
	result := make([]DriverWithDistance, 0, limit)
	for _, loc := range locations {
		meta, err := c.redis.HGetAll(ctx, driverMetaKeyPrefix+loc.Name).Result()
		if err != nil {
			continue
		}
		if !eligibleDriver(meta, cutoff) {
			continue
		}

		result = append(result, DriverWithDistance{DriverID: loc.Name, Distance: loc.Dist})
		if len(result) >= limit {
			break
		}
	}

	return result, nil
}

// eligibleDriver decides whether a geo-set member may be matched: it must be
// online and pooling, and its last report must be no older than the cutoff.
// A missing or garbled updated_at counts as stale.
func eligibleDriver(meta map[string]string, cutoff int64) bool {
	if meta["online"] != "true" || meta["pooling"] != "true" {
		return false
	}
	updated, err := strconv.ParseInt(meta["updated_at"], 10, 64)
	if err != nil || updated < cutoff {
		return false
	}
	return true
}

func (c *driverLocationCache) RemoveDriver(ctx context.Context, driverID string) error {
	if err := c.redis.ZRem(ctx, driverGeoKey, driverID).Err(); err != nil {
		return err
	}
	return c.redis.HSet(ctx, driverMetaKeyPrefix+driverID, map[string]interface{}{
		"online":  "false",
		"pooling": "false",
		"in_trip": "false",
	}).Err()
}
