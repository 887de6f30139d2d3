package cache

import (
	"context"
	"errors"
	"fmt"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const geocodeKeyPrefix = "geocode:"

// RedisGeocodeCache keeps coordinates in Redis as "lon,lat" strings with a TTL.
type RedisGeocodeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGeocodeCache(rdb *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{rdb: rdb, ttl: ttl}
}

func (c *RedisGeocodeCache) GetMany(ctx context.Context, addresses []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.redis.GetMany")(&err)

	if c.rdb == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}

	uniq := uniqueKeys(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	keys := make([]string, len(uniq))
	for i, a := range uniq {
		keys[i] = geocodeKeyPrefix + a
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: redis mget: %w", err)
	}

	out := make(map[string]domain.Coordinates, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		coords, err := parseLonLat(s)
		if err != nil {
			// Corrupt entries count as misses and get overwritten.
			continue
		}
		out[uniq[i]] = coords
	}

	return out, nil
}

func (c *RedisGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.redis.PutMany")(&err)

	if c.rdb == nil {
		return errors.New("geocode cache: redis client is nil")
	}

	if len(results) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for addr, coords := range results {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}
		pipe.Set(ctx, geocodeKeyPrefix+addr, formatLonLat(coords), c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert geocode cache: redis pipeline: %w", err)
	}
	return nil
}

func formatLonLat(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

func parseLonLat(s string) (domain.Coordinates, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("malformed coordinates %q", s)
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse lon %q: %w", lonStr, err)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse lat %q: %w", latStr, err)
	}

	return domain.Coordinates{Lon: lon, Lat: lat}, nil
}
