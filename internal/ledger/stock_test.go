package ledger

import (
	"testing"

	"relief-ledger/internal/models"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type StockLedgerSuite struct {
	suite.Suite
	db    *gorm.DB
	stock *StockLedger
}

func TestStockLedgerSuite(t *testing.T) {
	suite.Run(t, new(StockLedgerSuite))
}

func (s *StockLedgerSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.stock = NewStockLedger(nil)
}

func strp(v string) *string { return &v }
func uintp(v uint) *uint    { return &v }

func (s *StockLedgerSuite) apply(d Delta) *models.StockBucket {
	b, err := s.stock.ApplyDelta(s.db, d)
	s.Require().NoError(err)
	return b
}

func (s *StockLedgerSuite) TestApplyDelta() {
	s.Run("null resource type is a no-op", func() {
		s.Nil(s.apply(Delta{Quantity: 10, DisplayName: "x"}))
		s.Nil(s.apply(Delta{ResourceType: strp(""), Quantity: 10}))
		s.Equal(int64(0), count(s.T(), s.db, &models.StockBucket{}))
	})

	s.Run("non-positive delta on missing bucket creates nothing", func() {
		s.Nil(s.apply(Delta{ResourceType: strp("water"), Quantity: -5}))
		s.Nil(s.apply(Delta{ResourceType: strp("water"), Quantity: 0}))
		s.Equal(int64(0), count(s.T(), s.db, &models.StockBucket{}))
	})

	s.Run("positive delta creates bucket with hints", func() {
		b := s.apply(Delta{ResourceType: strp("water"), DisasterID: uintp(1), Quantity: 40, DisplayName: "Oxfam", Unit: "liters"})
		s.Equal(int64(40), b.Quantity)
		s.Equal("Oxfam", b.DisplayName)
		s.Equal("liters", b.Unit)
		s.Equal(uint(1), b.DisasterID)
	})

	s.Run("deltas accumulate and relabel", func() {
		b := s.apply(Delta{ResourceType: strp("water"), DisasterID: uintp(1), Quantity: 10, DisplayName: "Red Crescent", Unit: "ml"})
		s.Equal(int64(50), b.Quantity)
		s.Equal("Red Crescent", b.DisplayName)
		s.Equal("liters", b.Unit, "unit is only set on creation")
	})

	s.Run("empty hint never blanks the label", func() {
		b := s.apply(Delta{ResourceType: strp("water"), DisasterID: uintp(1), Quantity: -10})
		s.Equal(int64(40), b.Quantity)
		s.Equal("Red Crescent", b.DisplayName)
	})

	s.Run("floors at zero and keeps the row", func() {
		b := s.apply(Delta{ResourceType: strp("water"), DisasterID: uintp(1), Quantity: -1000})
		s.Equal(int64(0), b.Quantity)

		got, err := s.stock.Get(s.db, models.BucketKey{ResourceType: "water", DisasterID: 1})
		s.Require().NoError(err)
		s.Equal(int64(0), got.Quantity)
	})

	s.Run("nil and zero disaster share a bucket", func() {
		s.apply(Delta{ResourceType: strp("tents"), Quantity: 2})
		b := s.apply(Delta{ResourceType: strp("tents"), DisasterID: uintp(0), Quantity: 3})
		s.Equal(int64(5), b.Quantity)
	})

	s.Run("blank hint on creation falls back", func() {
		b := s.apply(Delta{ResourceType: strp("soap"), Quantity: 1})
		s.Equal("Unknown", b.DisplayName)
	})
}

func (s *StockLedgerSuite) TestReads() {
	s.apply(Delta{ResourceType: strp("water"), DisasterID: uintp(2), Quantity: 5, DisplayName: "a"})
	s.apply(Delta{ResourceType: strp("food"), DisasterID: uintp(1), Quantity: 7, DisplayName: "b"})
	s.apply(Delta{ResourceType: strp("food"), Quantity: 1, DisplayName: "c"})

	s.Run("get is stable without writes", func() {
		key := models.BucketKey{ResourceType: "food", DisasterID: 1}
		first, err := s.stock.Get(s.db, key)
		s.Require().NoError(err)
		second, err := s.stock.Get(s.db, key)
		s.Require().NoError(err)
		s.Equal(first, second)
	})

	s.Run("missing bucket is not found", func() {
		_, err := s.stock.Get(s.db, models.BucketKey{ResourceType: "fuel"})
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("list is ordered by key", func() {
		all, err := s.stock.List(s.db)
		s.Require().NoError(err)
		s.Require().Len(all, 3)
		s.Equal(models.BucketKey{ResourceType: "food"}, all[0].Key())
		s.Equal(models.BucketKey{ResourceType: "food", DisasterID: 1}, all[1].Key())
		s.Equal(models.BucketKey{ResourceType: "water", DisasterID: 2}, all[2].Key())
	})

	s.Run("lock tolerates missing and duplicate keys", func() {
		s.NoError(s.stock.Lock(s.db,
			models.BucketKey{ResourceType: "water", DisasterID: 2},
			models.BucketKey{ResourceType: "fuel"},
			models.BucketKey{ResourceType: "water", DisasterID: 2},
		))
	})
}
