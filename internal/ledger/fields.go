package ledger

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"relief-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Opt is one field of a request body. Set reports the key was present; Valid
// is false when it was present but null or blank.
type Opt[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func some[T any](v T) Opt[T] { return Opt[T]{Set: true, Valid: true, Value: v} }

// DonationFields holds parsed donation input. It is fully validated by
// ParseDonationFields, so applying it never fails.
type DonationFields struct {
	DonorName    Opt[string]
	ResourceType Opt[string]
	Quantity     Opt[int64]
	Unit         Opt[string]
	Amount       Opt[decimal.Decimal]
	DisasterID   Opt[uint]
}

// ParseDonationFields validates a JSON object body. Numeric fields accept JSON
// numbers or numeric strings; anything else fails the whole body.
func ParseDonationFields(body []byte) (DonationFields, error) {
	var f DonationFields

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return f, invalidf("body must be a JSON object")
	}

	var err error
	if f.DonorName, err = parseString(raw, "donor_name"); err != nil {
		return f, err
	}
	if f.ResourceType, err = parseString(raw, "resource_type"); err != nil {
		return f, err
	}
	if f.Unit, err = parseString(raw, "unit"); err != nil {
		return f, err
	}

	if f.Quantity, err = parseInt(raw, "quantity"); err != nil {
		return f, err
	}
	if f.Amount, err = parseAmount(raw, "amount"); err != nil {
		return f, err
	}

	disaster, err := parseNumeric(raw, "disaster_id")
	if err != nil {
		return f, err
	}
	f.DisasterID = Opt[uint]{Set: disaster.Set}
	if disaster.Valid {
		id, err := strconv.ParseUint(disaster.Value, 10, 32)
		if err != nil {
			return f, invalidf("disaster_id must be a non-negative integer")
		}
		// 0 means "no disaster"
		if id > 0 {
			f.DisasterID = some(uint(id))
		}
	}

	return f, nil
}

func parseString(raw map[string]json.RawMessage, key string) (Opt[string], error) {
	v, ok := raw[key]
	if !ok {
		return Opt[string]{}, nil
	}
	if isNull(v) {
		return Opt[string]{Set: true}, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return Opt[string]{}, invalidf("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Opt[string]{Set: true}, nil
	}
	return some(s), nil
}

// parseNumeric returns the trimmed text of a JSON number or numeric string.
func parseNumeric(raw map[string]json.RawMessage, key string) (Opt[string], error) {
	v, ok := raw[key]
	if !ok {
		return Opt[string]{}, nil
	}
	if isNull(v) {
		return Opt[string]{Set: true}, nil
	}

	text := string(v)
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return Opt[string]{}, invalidf("%s must be numeric", key)
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return Opt[string]{Set: true}, nil
		}
	}
	return some(text), nil
}

func parseInt(raw map[string]json.RawMessage, key string) (Opt[int64], error) {
	text, err := parseNumeric(raw, key)
	if err != nil || !text.Valid {
		return Opt[int64]{Set: text.Set}, err
	}
	n, err := strconv.ParseInt(text.Value, 10, 64)
	if err != nil || n < 0 {
		return Opt[int64]{}, invalidf("%s must be a non-negative integer", key)
	}
	return some(n), nil
}

// Amounts are stored as decimal(14,2).
const (
	amountScale     = 2
	amountIntDigits = 12
)

// parseAmount bounds the exponent before any arithmetic so inputs like
// "1e400000000" are rejected without expanding them.
func parseAmount(raw map[string]json.RawMessage, key string) (Opt[decimal.Decimal], error) {
	text, err := parseNumeric(raw, key)
	if err != nil || !text.Valid {
		return Opt[decimal.Decimal]{Set: text.Set}, err
	}
	d, err := decimal.NewFromString(text.Value)
	if err != nil {
		return Opt[decimal.Decimal]{}, invalidf("%s must be numeric", key)
	}
	if d.IsNegative() {
		return Opt[decimal.Decimal]{}, invalidf("%s must be non-negative", key)
	}
	exp := int64(d.Exponent())
	if exp < -amountScale || exp > amountIntDigits || int64(d.NumDigits())+exp > amountIntDigits {
		return Opt[decimal.Decimal]{}, invalidf("%s must have at most %d integer digits and %d decimal places", key, amountIntDigits, amountScale)
	}
	return some(d), nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// newDonation builds a donation owned by p. A blank donor name falls back to
// the principal's name.
func (f DonationFields) newDonation(p *Principal, now time.Time) *models.Donation {
	d := &models.Donation{
		DonorName: p.Name,
		DonatedBy: p.ID,
		DonatedAt: now.UTC(),
	}
	f.applyTo(d)
	if d.DonorName == "" {
		d.DonorName = "Unknown"
	}
	if d.ResourceType != nil && d.Quantity == nil {
		var zero int64
		d.Quantity = &zero
	}
	return d
}

// applyTo overwrites the fields that were present in the request. Pointer
// fields are replaced, never mutated in place, so a shallow copy of d taken
// beforehand stays intact.
func (f DonationFields) applyTo(d *models.Donation) {
	if f.DonorName.Valid {
		d.DonorName = f.DonorName.Value
	}
	if f.ResourceType.Set {
		d.ResourceType = ptr(f.ResourceType)
	}
	if f.Quantity.Set {
		d.Quantity = ptr(f.Quantity)
	}
	if f.Unit.Set {
		d.Unit = ptr(f.Unit)
	}
	if f.Amount.Set {
		d.Amount = decimal.NullDecimal{Decimal: f.Amount.Value, Valid: f.Amount.Valid}
	}
	if f.DisasterID.Set {
		d.DisasterID = ptr(f.DisasterID)
	}
}

func ptr[T any](o Opt[T]) *T {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}
