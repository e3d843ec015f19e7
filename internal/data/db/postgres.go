package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

type Config struct {
	Driver     string // "postgres" or "sqlite"
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
	// URL, when set, is used verbatim instead of the individual fields.
	URL string
}

func (c Config) DSN() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		sslMode,
	)
}

type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

func NewService(cfg Config, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DatabaseService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "", "postgres":
		driver = "postgres"
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "travelog.db"
		}
		db, err = gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (allowed: postgres, sqlite)", cfg.Driver)
	}

	serviceLog.Info("Database connected", "driver", driver, "host", cfg.Host, "name", cfg.Name)
	return &Service{db: db, log: serviceLog, driver: driver}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
