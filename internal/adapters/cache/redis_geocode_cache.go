package cache

import (
	"commute-route-service/internal/domain"
	"commute-route-service/internal/platform/obs"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geocode:"

// RedisGeocodeCache stores coordinates as "lat,lon" strings under
// "geocode:<normalized address>" with an optional TTL.
type RedisGeocodeCache struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

func NewRedisGeocodeCache(client redis.UniversalClient, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{Client: client, TTL: ttl}
}

func (r *RedisGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.redis.GetMany")(&err)

	if r.Client == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}

	byKey, uniq := keysFor(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	redisKeys := make([]string, len(uniq))
	for i, k := range uniq {
		redisKeys[i] = redisKeyPrefix + k
	}

	vals, err := r.Client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: mget: %w", err)
	}

	out := make(map[string]domain.Coordinates, len(addresses))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		c, err := decodeCoord(s)
		if err != nil {
			return nil, fmt.Errorf("get geocode cache key=%q: %w", redisKeys[i], err)
		}
		for _, a := range byKey[uniq[i]] {
			out[a] = c
		}
	}
	return out, nil
}

func (r *RedisGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	if r.Client == nil {
		return errors.New("geocode cache: redis client is nil")
	}
	if len(results) == 0 {
		return nil
	}

	pipe := r.Client.TxPipeline()
	for addr, c := range results {
		key := Key(addr)
		if key == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("insert geocode cache address=%q: %w", key, err)
		}
		pipe.Set(ctx, redisKeyPrefix+key, encodeCoord(c), r.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert geocode cache: exec pipeline: %w", err)
	}
	return nil
}

func encodeCoord(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

func decodeCoord(s string) (domain.Coordinates, error) {
	latS, lonS, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("malformed coordinates %q", s)
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("malformed latitude %q: %w", latS, err)
	}
	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("malformed longitude %q: %w", lonS, err)
	}
	c := domain.Coordinates{Lat: lat, Lon: lon}
	return c, c.Validate()
}
