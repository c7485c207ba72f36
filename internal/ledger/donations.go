package ledger

import (
	"errors"
	"fmt"

	"relief-ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope restricts a listing. A nil OwnerID lists every donation.
type Scope struct {
	OwnerID *uint
}

func OwnedBy(id uint) Scope { return Scope{OwnerID: &id} }

// DonationStore owns donation rows. Every method runs on the handle it is
// given, so the engine decides the transaction boundary.
type DonationStore struct{}

func (DonationStore) Create(tx *gorm.DB, d *models.Donation) error {
	if err := tx.Create(d).Error; err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (DonationStore) Get(tx *gorm.DB, id uint) (*models.Donation, error) {
	var d models.Donation
	if err := tx.Take(&d, id).Error; err != nil {
		return nil, notFound(err, id)
	}
	return &d, nil
}

// GetForUpdate loads the donation and holds its row lock until the
// transaction ends.
func (DonationStore) GetForUpdate(tx *gorm.DB, id uint) (*models.Donation, error) {
	var d models.Donation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&d, id).Error; err != nil {
		return nil, notFound(err, id)
	}
	return &d, nil
}

// Owner loads only the id and owner of a donation, enough for an
// authorization decision.
func (DonationStore) Owner(tx *gorm.DB, id uint) (*models.Donation, error) {
	var d models.Donation
	if err := tx.Select("id", "donated_by").Take(&d, id).Error; err != nil {
		return nil, notFound(err, id)
	}
	return &d, nil
}

func (DonationStore) Update(tx *gorm.DB, d *models.Donation) error {
	res := tx.Model(d).Select("*").Omit("id", "donated_by", "donated_at").Updates(d)
	if res.Error != nil {
		return fmt.Errorf("update donation %d: %w", d.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: donation %d", ErrNotFound, d.ID)
	}
	return nil
}

func (DonationStore) Delete(tx *gorm.DB, id uint) error {
	res := tx.Delete(&models.Donation{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete donation %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: donation %d", ErrNotFound, id)
	}
	return nil
}

// List returns donations newest first.
func (DonationStore) List(tx *gorm.DB, scope Scope) ([]models.Donation, error) {
	q := tx.Order("donated_at desc, id desc")
	if scope.OwnerID != nil {
		q = q.Where("donated_by = ?", *scope.OwnerID)
	}
	var out []models.Donation
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return out, nil
}

func notFound(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: donation %d", ErrNotFound, id)
	}
	return fmt.Errorf("load donation %d: %w", id, err)
}
