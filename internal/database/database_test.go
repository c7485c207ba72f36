package database

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"relief-ledger/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "db.sqlite")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func newUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@relief.test", PasswordHash: "x", Role: models.RoleDonor}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestAuditRecorder(t *testing.T) {
	db := newTestDB(t)
	u := newUser(t, db, "alice")

	ts := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	rec := &AuditRecorder{Now: func() time.Time {
		ts = ts.Add(time.Minute)
		return ts
	}}

	require.NoError(t, rec.Record(db, &models.AuditEntry{ActorID: &u.ID, Entity: "donation", EntityID: 1, Action: models.ActionCreateDonation, Detail: "Donation 1 created"}))
	require.NoError(t, rec.Record(db, &models.AuditEntry{Entity: "donation", EntityID: 1, Action: models.ActionDeleteDonation, Detail: "Donation 1 deleted"}))
	require.NoError(t, rec.Record(db, &models.AuditEntry{ActorID: &u.ID, Entity: "user", EntityID: u.ID, Action: models.ActionLogin}))

	t.Run("empty action is rejected", func(t *testing.T) {
		assert.Error(t, rec.Record(db, &models.AuditEntry{Entity: "donation"}))
	})

	t.Run("rolled back with the transaction", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			require.NoError(t, rec.Record(tx, &models.AuditEntry{Action: models.ActionUpdateDonation}))
			return gorm.ErrInvalidTransaction
		})
		require.Error(t, err)
		entries, err := ListAudit(db, AuditFilter{Action: models.ActionUpdateDonation})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("list oldest first with actor", func(t *testing.T) {
		entries, err := ListAudit(db, AuditFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, models.ActionCreateDonation, entries[0].Action)
		assert.Equal(t, models.ActionLogin, entries[2].Action)
		require.NotNil(t, entries[0].Actor)
		assert.Equal(t, "alice", entries[0].Actor.Name)
		assert.Nil(t, entries[1].ActorID)
	})

	t.Run("filters", func(t *testing.T) {
		byUser, err := ListAudit(db, AuditFilter{ActorID: &u.ID})
		require.NoError(t, err)
		assert.Len(t, byUser, 2)

		byAction, err := ListAudit(db, AuditFilter{Action: "delete_donation"})
		require.NoError(t, err)
		require.Len(t, byAction, 1)
		assert.Equal(t, "Donation 1 deleted", byAction[0].Detail)

		limited, err := ListAudit(db, AuditFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("clear", func(t *testing.T) {
		n, err := ClearAudit(db)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		entries, err := ListAudit(db, AuditFilter{})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestSeedSuperAdmin(t *testing.T) {
	t.Run("creates once with given password", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, SeedSuperAdmin(db, "root@relief.test", "hunter22", zerolog.Nop()))
		require.NoError(t, SeedSuperAdmin(db, "root@relief.test", "other", zerolog.Nop()))

		var admins []models.User
		require.NoError(t, db.Where("role = ?", models.RoleSuperAdmin).Find(&admins).Error)
		require.Len(t, admins, 1)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admins[0].PasswordHash), []byte("hunter22")))
	})

	t.Run("generates and logs a password", func(t *testing.T) {
		db := newTestDB(t)
		var buf bytes.Buffer
		require.NoError(t, SeedSuperAdmin(db, "root@relief.test", "", zerolog.New(&buf)))
		assert.True(t, strings.Contains(buf.String(), `"password":"`))
	})

	t.Run("skips when an admin exists", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.Create(&models.User{Name: "a", Email: "a@relief.test", PasswordHash: "x", Role: models.RoleAdmin}).Error)
		require.NoError(t, SeedSuperAdmin(db, "root@relief.test", "pw", zerolog.Nop()))

		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})
}

func TestStockBucketKeyIsUnique(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.StockBucket{ResourceType: "water", Quantity: 1, DisplayName: "a"}).Error)
	require.NoError(t, db.Create(&models.StockBucket{ResourceType: "water", DisasterID: 1, Quantity: 1, DisplayName: "a"}).Error)
	assert.Error(t, db.Create(&models.StockBucket{ResourceType: "water", Quantity: 2, DisplayName: "b"}).Error)
}
