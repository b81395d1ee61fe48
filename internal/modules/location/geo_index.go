// README: Driver GEO index backed by Redis GEO sets.
package location

import (
	"context"

	"github.com/redis/go-redis/v9"

	"ridematch/internal/types"
)

const driverGeoKey = "location:drivers"

// GeoIndex mirrors available driver positions for radius queries.
type GeoIndex interface {
	Add(ctx context.Context, id types.ID, p types.Point) error
	Remove(ctx context.Context, id types.ID) error
	Search(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error)
}

type RedisGeoIndex struct {
	redis *redis.Client
}

func NewRedisGeoIndex(client *redis.Client) *RedisGeoIndex {
	return &RedisGeoIndex{redis: client}
}

func (g *RedisGeoIndex) Add(ctx context.Context, id types.ID, p types.Point) error {
	return g.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (g *RedisGeoIndex) Remove(ctx context.Context, id types.ID) error {
	return g.redis.ZRem(ctx, driverGeoKey, string(id)).Err()
}

// Search returns driver ids within radiusKm of p, closest first.
func (g *RedisGeoIndex) Search(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := g.redis.GeoSearch(ctx, driverGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}
