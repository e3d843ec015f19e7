package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/travelog-backend/internal/data/db"
	"github.com/yungbote/travelog-backend/internal/jobs/sweep"
	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/envutil"
	"github.com/yungbote/travelog-backend/internal/platform/gcp"
	"github.com/yungbote/travelog-backend/internal/platform/imagecheck"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
	"github.com/yungbote/travelog-backend/internal/platform/weather"
	"github.com/yungbote/travelog-backend/internal/services"
)

type Config struct {
	Port    string
	LogMode string

	DB          db.Config
	AutoMigrate bool

	JWTSecretKey string
	AdminUserIDs []uuid.UUID
	CORSOrigins  []string

	ObjectStorage gcp.ObjectStorageConfig

	WeatherAPIURL      string
	WeatherAPIKey      string
	WeatherTimeout     time.Duration
	WeatherCacheTTL    time.Duration
	WeatherConcurrency int
	RedisAddr          string

	SweepEnabled  bool
	SweepCron     string
	SweepTimezone string

	RecordDeletePolicy      services.DeletePolicy
	RecordUploadConcurrency int
	RecordMaxImageBytes     int

	MetricsEnabled bool
	Otel           observability.OtelConfig
}

// LoadConfig reads the environment and validates the result.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg, err := ReadConfig(log)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ReadConfig reads the environment without the checks only the HTTP server needs.
func ReadConfig(log *logger.Logger) (Config, error) {
	policy, err := services.ParseDeletePolicy(envutil.String("RECORD_DELETE_POLICY", string(services.DeletePolicyStrict), log))
	if err != nil {
		return Config{}, err
	}
	admins, err := parseUUIDList(envutil.String("ADMIN_USER_IDS", "", log))
	if err != nil {
		return Config{}, fmt.Errorf("ADMIN_USER_IDS: %w", err)
	}

	cfg := Config{
		Port:    envutil.String("PORT", "8080", log),
		LogMode: envutil.String("LOG_MODE", "development", log),

		DB: db.Config{
			Driver:     envutil.String("DB_DRIVER", "postgres", log),
			URL:        envutil.String("DATABASE_URL", "", log),
			Host:       envutil.String("POSTGRES_HOST", "localhost", log),
			Port:       envutil.String("POSTGRES_PORT", "5432", log),
			User:       envutil.String("POSTGRES_USER", "postgres", log),
			Password:   envutil.String("POSTGRES_PASSWORD", "", log),
			Name:       envutil.String("POSTGRES_NAME", "travelog", log),
			SSLMode:    envutil.String("POSTGRES_SSLMODE", "disable", log),
			SQLitePath: envutil.String("SQLITE_PATH", "travelog.db", log),
		},
		AutoMigrate: envutil.Bool("DB_AUTOMIGRATE", true, log),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "", log),
		AdminUserIDs: admins,
		CORSOrigins:  splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),

		ObjectStorage: gcp.ObjectStorageConfig{
			Mode:          gcp.ObjectStorageMode(envutil.String("OBJECT_STORAGE_MODE", "", log)),
			EmulatorHost:  envutil.String("STORAGE_EMULATOR_HOST", "", log),
			Bucket:        envutil.String("RECORD_GCS_BUCKET_NAME", "", log),
			CDNDomain:     envutil.String("RECORD_CDN_DOMAIN", "", log),
			PublicBaseURL: envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", "", log),
		},

		WeatherAPIURL:      envutil.String("WEATHER_API_URL", weather.DefaultBaseURL, log),
		WeatherAPIKey:      envutil.String("WEATHER_API_KEY", "", log),
		WeatherTimeout:     envutil.Duration("WEATHER_TIMEOUT", 5*time.Second, log),
		WeatherCacheTTL:    envutil.Duration("WEATHER_CACHE_TTL", 10*time.Minute, log),
		WeatherConcurrency: envutil.Int("WEATHER_CONCURRENCY", 4, log),
		RedisAddr:          envutil.String("REDIS_ADDR", "", log),

		SweepEnabled:  envutil.Bool("SWEEP_ENABLED", true, log),
		SweepCron:     envutil.String("SWEEP_CRON", sweep.DefaultSpec, log),
		SweepTimezone: envutil.String("SWEEP_TIMEZONE", "Asia/Seoul", log),

		RecordDeletePolicy:      policy,
		RecordUploadConcurrency: envutil.Int("RECORD_UPLOAD_CONCURRENCY", 4, log),
		RecordMaxImageBytes:     envutil.Int("RECORD_MAX_IMAGE_BYTES", imagecheck.DefaultMaxBytes, log),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", false, log),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "travelog", log),
			Environment: envutil.String("DEPLOY_ENV", "development", log),
			Version:     envutil.String("APP_VERSION", "dev", log),
			Exporter:    envutil.String("OTEL_EXPORTER", "", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: observability.ParseSampleRatio(envutil.String("OTEL_SAMPLE_RATIO", "1", log)),
		},
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail on first use.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := c.SweepLocation(); err != nil {
		return err
	}
	if c.RecordUploadConcurrency <= 0 {
		return fmt.Errorf("RECORD_UPLOAD_CONCURRENCY must be positive, got %d", c.RecordUploadConcurrency)
	}
	if c.RecordMaxImageBytes <= 0 {
		return fmt.Errorf("RECORD_MAX_IMAGE_BYTES must be positive, got %d", c.RecordMaxImageBytes)
	}
	return nil
}

func (c Config) SweepLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SweepTimezone)
	if err != nil {
		return nil, fmt.Errorf("SWEEP_TIMEZONE %q: %w", c.SweepTimezone, err)
	}
	return loc, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseUUIDList(raw string) ([]uuid.UUID, error) {
	parts := splitList(raw)
	out := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, id)
	}
	return out, nil
}
