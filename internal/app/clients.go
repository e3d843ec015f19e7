package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/gcp"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
	"github.com/yungbote/travelog-backend/internal/platform/weather"
	"github.com/yungbote/travelog-backend/internal/services"
)

type Clients struct {
	Bucket  *gcp.ImageBucket
	Redis   *goredis.Client
	Weather services.WeatherLookup
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := resolveImageBucket(ctx, log, cfg, metrics)
	if err != nil {
		return Clients{}, fmt.Errorf("init image bucket: %w", err)
	}

	out := Clients{Bucket: bucket}

	if strings.TrimSpace(cfg.WeatherAPIKey) == "" {
		log.Warn("WEATHER_API_KEY not set, plan details will omit temperatures")
		return out, nil
	}
	loc, err := cfg.SweepLocation()
	if err != nil {
		out.Close()
		return Clients{}, err
	}
	wc, err := weather.New(log, weather.Config{
		BaseURL:    cfg.WeatherAPIURL,
		ServiceKey: cfg.WeatherAPIKey,
		Timeout:    cfg.WeatherTimeout,
		Location:   loc,
	})
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init weather client: %w", err)
	}

	if strings.TrimSpace(cfg.RedisAddr) == "" {
		out.Weather = wc
		return out, nil
	}
	rdb, err := weather.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	out.Redis = rdb
	out.Weather = weather.NewCachedClient(log, wc, rdb, cfg.WeatherCacheTTL)
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
}
