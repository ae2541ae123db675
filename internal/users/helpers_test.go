package users

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/config"
	pkgdb "github.com/angelmondragon/homestock-backend/pkg/db"
	"github.com/angelmondragon/homestock-backend/pkg/db/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := pkgdb.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.InventoryItem{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T, cache subjectCache) (*Service, *gorm.DB, *testClock) {
	t.Helper()
	db := newTestDB(t)
	svc, clock := newTestServiceWithRepo(t, NewRepository(db), cache)
	return svc, db, clock
}

func newTestServiceWithRepo(t *testing.T, repo userRepository, cache subjectCache) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Password: config.PasswordConfig{Algorithm: "bcrypt", BcryptCost: bcrypt.MinCost},
		Cache:    cache,
		Clock:    clock.Now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, clock
}
