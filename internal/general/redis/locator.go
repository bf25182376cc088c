package redis

import (
	"context"
	"fmt"

	"freight-connect/internal/general/config"
	"freight-connect/internal/ports"

	goredis "github.com/redis/go-redis/v9"
)

const tripGeoKey = "trips:start_points"

// TripLocator mirrors active trip start points into a Redis GEO set. It is a
// best-effort fast path for current-location searches; callers fall back to
// the store predicate on any error.
type TripLocator struct {
	client *goredis.Client
}

// Connect opens the Redis client and verifies the connection.
func Connect(ctx context.Context, cfg *config.Config) (*TripLocator, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &TripLocator{client: client}, nil
}

// Close releases the underlying connection pool.
func (l *TripLocator) Close() error {
	return l.client.Close()
}

// Add registers or moves a trip's start point.
func (l *TripLocator) Add(ctx context.Context, tripID string, lon, lat float64) error {
	return l.client.GeoAdd(ctx, tripGeoKey, &goredis.GeoLocation{
		Name:      tripID,
		Longitude: lon,
		Latitude:  lat,
	}).Err()
}

// Remove drops a trip from the index, e.g. on deactivation.
func (l *TripLocator) Remove(ctx context.Context, tripID string) error {
	return l.client.ZRem(ctx, tripGeoKey, tripID).Err()
}

// Nearby returns up to limit trip ids within radiusMeters of the point,
// closest first.
func (l *TripLocator) Nearby(ctx context.Context, lon, lat, radiusMeters float64, limit int) ([]string, error) {
	locs, err := l.client.GeoSearchLocation(ctx, tripGeoKey, &goredis.GeoSearchLocationQuery{
		GeoSearchQuery: goredis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis geo search: %w", err)
	}

	ids := make([]string, 0, len(locs))
	for _, loc := range locs {
		ids = append(ids, loc.Name)
	}
	return ids, nil
}

var _ ports.TripLocator = (*TripLocator)(nil)
