// Package redis keeps a last-known location per online driver in Redis so
// nearby queries can use a geo index. The presence registry stays the source
// of truth; this is a mirror.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"campusride/config"
	"campusride/pkg/logger"
	"campusride/pkg/models"
)

const (
	geoKey    = "geo:drivers"
	keyPrefix = "driver:location:"
)

type LocationCache struct {
	client *goredis.Client
	ttl    time.Duration
	log    logger.ILogger
}

func New(ctx context.Context, cfg config.Config, log logger.ILogger) (*LocationCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis location cache connected", logger.String("addr", cfg.RedisHost+":"+cfg.RedisPort))
	return NewWithClient(client, cfg.LocationTTL, log), nil
}

func NewWithClient(client *goredis.Client, ttl time.Duration, log logger.ILogger) *LocationCache {
	return &LocationCache{client: client, ttl: ttl, log: log}
}

func member(driverID int64) string {
	return strconv.FormatInt(driverID, 10)
}

func (c *LocationCache) Put(ctx context.Context, driverID int64, loc models.Location) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+member(driverID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set location: %w", err)
	}
	if err := c.client.GeoAdd(ctx, geoKey, &goredis.GeoLocation{
		Name:      member(driverID),
		Longitude: loc.Lng,
		Latitude:  loc.Lat,
	}).Err(); err != nil {
		return fmt.Errorf("geo add: %w", err)
	}
	return nil
}

func (c *LocationCache) Get(ctx context.Context, driverID int64) (*models.Location, error) {
	data, err := c.client.Get(ctx, keyPrefix+member(driverID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	var loc models.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("unmarshal location: %w", err)
	}
	return &loc, nil
}

func (c *LocationCache) Remove(ctx context.Context, driverID int64) error {
	if err := c.client.Del(ctx, keyPrefix+member(driverID)).Err(); err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if err := c.client.ZRem(ctx, geoKey, member(driverID)).Err(); err != nil {
		return fmt.Errorf("geo remove: %w", err)
	}
	return nil
}

// Nearby returns up to limit drivers within radiusKm of the point, closest
// first. Geo members whose location key has expired are dropped from the
// index and do not count towards limit.
func (c *LocationCache) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]models.DriverLocation, error) {
	hits, err := c.client.GeoRadius(ctx, geoKey, lng, lat, &goredis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo radius: %w", err)
	}

	out := make([]models.DriverLocation, 0, len(hits))
	var stale []interface{}
	for _, h := range hits {
		if limit > 0 && len(out) == limit {
			break
		}
		id, err := strconv.ParseInt(h.Name, 10, 64)
		if err != nil {
			continue
		}
		loc, err := c.Get(ctx, id)
		if err != nil {
			c.log.Warning("skip nearby driver", logger.Int64("driver_id", id), logger.Error(err))
			continue
		}
		if loc == nil {
			stale = append(stale, h.Name)
			continue
		}
		out = append(out, models.DriverLocation{DriverID: id, Location: *loc, Distance: h.Dist})
	}
	if len(stale) > 0 {
		if err := c.client.ZRem(ctx, geoKey, stale...).Err(); err != nil {
			c.log.Warning("failed to drop expired geo members", logger.Int("count", len(stale)), logger.Error(err))
		}
	}
	return out, nil
}

func (c *LocationCache) Close() error {
	return c.client.Close()
}
