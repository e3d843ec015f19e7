package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

const DefaultCacheTTL = 10 * time.Minute

// CachedClient serves observations from Redis and falls through to the
// upstream client on a miss. Redis failures never fail a lookup.
type CachedClient struct {
	log   *logger.Logger
	next  *Client
	rdb   goredis.Cmdable
	ttl   time.Duration
	scope string
}

func NewCachedClient(log *logger.Logger, next *Client, rdb goredis.Cmdable, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedClient{
		log:   log.With("client", "WeatherCache"),
		next:  next,
		rdb:   rdb,
		ttl:   ttl,
		scope: "weather:ncst",
	}
}

func (c *CachedClient) key(x, y int, baseDate, baseTime string) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", c.scope, x, y, baseDate, baseTime)
}

func (c *CachedClient) CurrentWeather(ctx context.Context, x, y int) (*Observation, error) {
	baseDate, baseTime := BaseDateTime(c.next.now(), c.next.cfg.Location)
	key := c.key(x, y, baseDate, baseTime)

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var obs Observation
			if jerr := json.Unmarshal(raw, &obs); jerr == nil {
				return &obs, nil
			}
			c.log.Warn("Discarding undecodable cached observation", "key", key)
		case errors.Is(err, goredis.Nil):
		default:
			c.log.Warn("Weather cache read failed; using upstream", "key", key, "error", err)
		}
	}

	obs, err := c.next.fetch(ctx, x, y, baseDate, baseTime)
	if err != nil {
		return nil, err
	}
	if c.rdb != nil {
		if raw, jerr := json.Marshal(obs); jerr == nil {
			if serr := c.rdb.Set(ctx, key, raw, c.ttl).Err(); serr != nil {
				c.log.Warn("Weather cache write failed", "key", key, "error", serr)
			}
		}
	}
	return obs, nil
}
