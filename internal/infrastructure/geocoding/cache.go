package geocoding

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sngm3741/wanderlust/api/internal/listing/application"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

const cacheKeyPrefix = "geocode:"

// CachedGeocoder wraps another geocoder and keeps resolved coordinates in Redis.
// Unresolved は一時的な失敗の可能性があるためキャッシュしない。
type CachedGeocoder struct {
	next   application.Geocoder
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewCachedGeocoder(next application.Geocoder, client *redis.Client, ttl time.Duration, logger *log.Logger) *CachedGeocoder {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CachedGeocoder{next: next, client: client, ttl: ttl, logger: logger}
}

// Resolve checks the cache first. Redis errors fall through to the wrapped geocoder.
func (c *CachedGeocoder) Resolve(ctx context.Context, location string) domain.GeocodeResult {
	query := strings.TrimSpace(location)
	if query == "" {
		return domain.Unresolved()
	}
	key := cacheKey(query)

	fields, err := c.client.HGetAll(ctx, key).Result()
	switch {
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Printf("geocode cache get %q: %v", query, err)
	case len(fields) > 0:
		if coordinate, ok := decodeCoordinate(fields); ok {
			return domain.Resolved(coordinate)
		}
	}

	result := c.next.Resolve(ctx, query)
	coordinate, ok := result.Coordinate()
	if !ok {
		return result
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key,
		"lon", strconv.FormatFloat(coordinate.Longitude, 'f', -1, 64),
		"lat", strconv.FormatFloat(coordinate.Latitude, 'f', -1, 64),
	)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Printf("geocode cache set %q: %v", query, err)
	}
	return result
}

// cacheKey はロケーション文字列を大文字小文字・空白の差異を吸収して正規化する。
func cacheKey(location string) string {
	return cacheKeyPrefix + strings.ToLower(strings.Join(strings.Fields(location), " "))
}

func decodeCoordinate(fields map[string]string) (domain.Coordinate, bool) {
	lon, err := strconv.ParseFloat(fields["lon"], 64)
	if err != nil {
		return domain.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(fields["lat"], 64)
	if err != nil {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Longitude: lon, Latitude: lat}, true
}
