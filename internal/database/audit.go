package database

import (
	"fmt"
	"strings"
	"time"

	"relief-ledger/internal/models"

	"gorm.io/gorm"
)

// AuditRecorder appends audit entries through whatever handle it is given, so
// callers inside a transaction get the entry committed or rolled back with their data.
type AuditRecorder struct {
	Now func() time.Time
}

func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{Now: time.Now}
}

func (r *AuditRecorder) Record(tx *gorm.DB, entry *models.AuditEntry) error {
	if entry.Action == "" {
		return fmt.Errorf("audit entry without action")
	}
	entry.ID = 0
	entry.CreatedAt = r.Now().UTC()
	if err := tx.Omit("Actor").Create(entry).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

type AuditFilter struct {
	ActorID *uint
	Action  string
	Limit   int
}

// ListAudit returns entries oldest first, ties broken by id.
func ListAudit(db *gorm.DB, f AuditFilter) ([]models.AuditEntry, error) {
	q := db.Model(&models.AuditEntry{}).Preload("Actor").Order("created_at asc, id asc")
	if f.ActorID != nil {
		q = q.Where("actor_id = ?", *f.ActorID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", strings.ToUpper(f.Action))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var entries []models.AuditEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// ClearAudit removes every entry. The clear itself is not logged.
func ClearAudit(db *gorm.DB) (int64, error) {
	res := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.AuditEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear audit entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
