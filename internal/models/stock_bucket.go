package models

import (
	"fmt"
	"time"
)

// BucketKey identifies a stock bucket. DisasterID 0 means the stock is not
// attached to any disaster.
type BucketKey struct {
	ResourceType string
	DisasterID   uint
}

func (k BucketKey) String() string {
	if k.DisasterID == 0 {
		return k.ResourceType + "/-"
	}
	return fmt.Sprintf("%s/%d", k.ResourceType, k.DisasterID)
}

// Less orders keys for lock acquisition.
func (k BucketKey) Less(o BucketKey) bool {
	if k.ResourceType != o.ResourceType {
		return k.ResourceType < o.ResourceType
	}
	return k.DisasterID < o.DisasterID
}

// StockBucket is the aggregate quantity of one resource type for one disaster.
type StockBucket struct {
	ID           uint   `gorm:"primaryKey"`
	ResourceType string `gorm:"size:120;not null;uniqueIndex:idx_stock_bucket_key,priority:1"`
	DisasterID   uint   `gorm:"not null;default:0;uniqueIndex:idx_stock_bucket_key,priority:2"`
	Quantity     int64  `gorm:"not null;default:0"`
	DisplayName  string `gorm:"size:120;not null"`
	Unit         string `gorm:"size:50"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (b *StockBucket) Key() BucketKey {
	return BucketKey{ResourceType: b.ResourceType, DisasterID: b.DisasterID}
}
