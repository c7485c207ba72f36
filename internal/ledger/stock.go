package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"relief-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Delta is one signed quantity change aimed at a bucket. A nil or empty
// ResourceType makes it a no-op.
type Delta struct {
	ResourceType *string
	DisasterID   *uint
	Quantity     int64
	DisplayName  string
	Unit         string
}

func (d Delta) key() (models.BucketKey, bool) {
	if d.ResourceType == nil || *d.ResourceType == "" {
		return models.BucketKey{}, false
	}
	k := models.BucketKey{ResourceType: *d.ResourceType}
	if d.DisasterID != nil {
		k.DisasterID = *d.DisasterID
	}
	return k, true
}

// deltaFor is the contribution of d to its bucket, multiplied by sign.
// Only additions carry the donor name and unit; removing stock never
// relabels the bucket.
func deltaFor(d *models.Donation, sign int64) Delta {
	delta := Delta{
		ResourceType: d.ResourceType,
		DisasterID:   d.DisasterID,
		Quantity:     sign * d.Qty(),
	}
	if sign > 0 {
		delta.DisplayName = d.DonorName
		if d.Unit != nil {
			delta.Unit = *d.Unit
		}
	}
	return delta
}

// StockLedger owns the aggregate buckets.
type StockLedger struct {
	metrics *Metrics
}

func NewStockLedger(m *Metrics) *StockLedger {
	return &StockLedger{metrics: m}
}

// Get returns the bucket for key or ErrNotFound.
func (s *StockLedger) Get(tx *gorm.DB, key models.BucketKey) (*models.StockBucket, error) {
	var b models.StockBucket
	err := tx.Where("resource_type = ? AND disaster_id = ?", key.ResourceType, key.DisasterID).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: stock bucket %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load stock bucket %s: %w", key, err)
	}
	return &b, nil
}

func (s *StockLedger) List(tx *gorm.DB) ([]models.StockBucket, error) {
	var out []models.StockBucket
	if err := tx.Order("resource_type asc, disaster_id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list stock buckets: %w", err)
	}
	return out, nil
}

// Lock takes row locks on the existing buckets among keys, in key order, so
// two operations touching the same pair of buckets cannot deadlock.
func (s *StockLedger) Lock(tx *gorm.DB, keys ...models.BucketKey) error {
	sorted := make([]models.BucketKey, 0, len(keys))
	seen := make(map[models.BucketKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	for _, k := range sorted {
		var b models.StockBucket
		err := s.locked(tx, k).Take(&b).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lock stock bucket %s: %w", k, err)
		}
	}
	return nil
}

// ApplyDelta adds delta.Quantity to the bucket, flooring the result at zero.
// A missing bucket is created only for a positive delta. Each call applies
// its delta once; callers must not retry it.
func (s *StockLedger) ApplyDelta(tx *gorm.DB, delta Delta) (*models.StockBucket, error) {
	key, ok := delta.key()
	if !ok {
		return nil, nil
	}

	var b models.StockBucket
	err := s.locked(tx, key).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if delta.Quantity <= 0 {
			return nil, nil
		}
		created, err := s.create(tx, key, delta)
		if err != nil || created != nil {
			return created, err
		}
		// lost the insert race; the row exists now
		err = s.locked(tx, key).Take(&b).Error
	}
	if err != nil {
		return nil, fmt.Errorf("load stock bucket %s: %w", key, err)
	}

	if delta.Quantity > 0 && b.Quantity > math.MaxInt64-delta.Quantity {
		return nil, invalidf("stock bucket %s would overflow", key)
	}
	next := b.Quantity + delta.Quantity
	if next < 0 {
		next = 0
		s.metrics.clamped(key.ResourceType)
	}

	updates := map[string]any{"quantity": next}
	if delta.DisplayName != "" {
		updates["display_name"] = delta.DisplayName
	}
	if err := tx.Model(&b).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update stock bucket %s: %w", key, err)
	}
	b.Quantity = next
	if delta.DisplayName != "" {
		b.DisplayName = delta.DisplayName
	}
	return &b, nil
}

// create inserts a fresh bucket. It returns nil without error when a
// concurrent transaction inserted the same key first.
func (s *StockLedger) create(tx *gorm.DB, key models.BucketKey, delta Delta) (*models.StockBucket, error) {
	name := delta.DisplayName
	if name == "" {
		name = "Unknown"
	}
	b := &models.StockBucket{
		ResourceType: key.ResourceType,
		DisasterID:   key.DisasterID,
		Quantity:     delta.Quantity,
		DisplayName:  name,
		Unit:         delta.Unit,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "resource_type"}, {Name: "disaster_id"}},
		DoNothing: true,
	}).Create(b)
	if res.Error != nil {
		return nil, fmt.Errorf("create stock bucket %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return b, nil
}

func (s *StockLedger) locked(tx *gorm.DB, key models.BucketKey) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("resource_type = ? AND disaster_id = ?", key.ResourceType, key.DisasterID)
}
