// Package testutil opens the shared Postgres database used by repo
// integration tests. Tests skip unless TEST_POSTGRES_DSN is set.
package testutil

import (
	"os"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/travelog-backend/internal/data/db"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

const dsnEnv = "TEST_POSTGRES_DSN"

type harness struct {
	once sync.Once
	log  *logger.Logger
	svc  *db.Service
	err  error
	skip bool
}

var shared harness

func (h *harness) init() {
	h.once.Do(func() {
		h.log = logger.Nop()
		dsn := strings.TrimSpace(os.Getenv(dsnEnv))
		if dsn == "" {
			h.skip = true
			return
		}
		h.svc, h.err = db.NewService(db.Config{Driver: "postgres", URL: dsn}, h.log)
		if h.err != nil {
			return
		}
		h.err = h.svc.AutoMigrateAll()
	})
}

// Logger returns a no-op logger shared by repo tests.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	shared.init()
	return shared.log
}

// DB returns the migrated test database, skipping tb when no DSN is configured.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	shared.init()
	switch {
	case shared.skip:
		tb.Skipf("%s not set; skipping repo integration test", dsnEnv)
	case shared.err != nil:
		tb.Fatalf("test database: %v", shared.err)
	}
	return shared.svc.DB()
}

// Tx opens a transaction that is rolled back when tb finishes.
func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if err := tx.Error; err != nil {
		tb.Fatalf("begin: %v", err)
	}
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}
