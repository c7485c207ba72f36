package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"relief-ledger/internal/database"
	"relief-ledger/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a migrated sqlite database in a temp dir. A single
// connection serializes transactions the way row locks would on Postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedPrincipal(t *testing.T, db *gorm.DB, name string, role models.UserRole) *Principal {
	t.Helper()
	u := models.User{
		Name:         name,
		Email:        name + "@relief.test",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&u).Error)
	return &Principal{ID: u.ID, Name: u.Name, Role: u.Role}
}

// stepClock advances one second per call so donated_at ordering is stable.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func mustFields(t *testing.T, body string) DonationFields {
	t.Helper()
	f, err := ParseDonationFields([]byte(body))
	require.NoError(t, err)
	return f
}

func bucketQty(t *testing.T, db *gorm.DB, resourceType string, disasterID uint) int64 {
	t.Helper()
	b, err := NewStockLedger(nil).Get(db, models.BucketKey{ResourceType: resourceType, DisasterID: disasterID})
	require.NoError(t, err)
	return b.Quantity
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// faultyStock wraps the real ledger and can fail or stall ApplyDelta.
type faultyStock struct {
	*StockLedger
	failApply  bool
	stallApply bool
}

func (f *faultyStock) ApplyDelta(tx *gorm.DB, d Delta) (*models.StockBucket, error) {
	if f.stallApply {
		<-tx.Statement.Context.Done()
		return nil, tx.Statement.Context.Err()
	}
	if f.failApply {
		return nil, errInjected
	}
	return f.StockLedger.ApplyDelta(tx, d)
}

type failingAuditor struct{}

func (failingAuditor) Record(*gorm.DB, *models.AuditEntry) error { return errInjected }

type injectedError struct{}

func (injectedError) Error() string { return "injected failure" }

var errInjected error = injectedError{}

func quietLogger() zerolog.Logger { return zerolog.Nop() }

var bg = context.Background()
