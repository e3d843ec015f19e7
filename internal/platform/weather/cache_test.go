package weather

import (
	"context"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

func TestCachedClientDegradesWhenRedisDown(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(jsonBody))
	})
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	cached := NewCachedClient(logger.Nop(), c, rdb, time.Minute)
	for i := 0; i < 2; i++ {
		obs, err := cached.CurrentWeather(context.Background(), 60, 127)
		require.NoError(t, err)
		require.NotNil(t, obs.Temperature)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCachedClientServesFromRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis cache tests")
	}
	rdb, err := NewRedisClient(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(jsonBody))
	})
	cached := NewCachedClient(logger.Nop(), c, rdb, time.Minute)
	cached.scope = "weather:test:" + time.Now().Format("150405.000000")

	first, err := cached.CurrentWeather(context.Background(), 60, 127)
	require.NoError(t, err)
	second, err := cached.CurrentWeather(context.Background(), 60, 127)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, *first.Temperature, *second.Temperature)
	assert.Equal(t, "1400", second.BaseTime)
}
