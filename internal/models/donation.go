package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation is a single attributable gift. A nil ResourceType means a purely
// monetary donation that never touches the stock ledger.
type Donation struct {
	ID           uint                `gorm:"primaryKey"`
	DonorName    string              `gorm:"size:120;not null"`
	ResourceType *string             `gorm:"size:120"`
	Quantity     *int64
	Unit         *string             `gorm:"size:50"`
	Amount       decimal.NullDecimal `gorm:"type:decimal(14,2)"`
	DisasterID   *uint               `gorm:"index"`
	DonatedBy    uint                `gorm:"index;not null"`
	DonatedAt    time.Time           `gorm:"index;not null"`
}

// Qty is the inventory quantity, zero when unset.
func (d *Donation) Qty() int64 {
	if d.Quantity == nil {
		return 0
	}
	return *d.Quantity
}

// BucketKey is the stock bucket this donation contributes to. ok is false for
// monetary-only donations.
func (d *Donation) BucketKey() (key BucketKey, ok bool) {
	if d.ResourceType == nil || *d.ResourceType == "" {
		return BucketKey{}, false
	}
	key.ResourceType = *d.ResourceType
	if d.DisasterID != nil {
		key.DisasterID = *d.DisasterID
	}
	return key, true
}
