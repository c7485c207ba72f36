package ledger

import (
	"context"
	"fmt"
	"time"

	"relief-ledger/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Stock is the part of the stock ledger the engine mutates.
type Stock interface {
	Lock(tx *gorm.DB, keys ...models.BucketKey) error
	ApplyDelta(tx *gorm.DB, delta Delta) (*models.StockBucket, error)
}

// Auditor appends an audit entry on the given transaction.
type Auditor interface {
	Record(tx *gorm.DB, entry *models.AuditEntry) error
}

const defaultLockTimeout = 5 * time.Second

// Engine keeps the stock ledger consistent with the donation store. Every
// mutation runs as one transaction covering the donation row, the touched
// buckets and the audit entry.
type Engine struct {
	db          *gorm.DB
	donations   DonationStore
	stock       Stock
	buckets     *StockLedger
	audit       Auditor
	gate        Gate
	metrics     *Metrics
	log         zerolog.Logger
	lockTimeout time.Duration
	now         func() time.Time
}

type Option func(*Engine)

func WithGate(g Gate) Option { return func(e *Engine) { e.gate = g } }

// WithStock replaces the ledger used for mutations. Reads keep using the
// built-in StockLedger.
func WithStock(s Stock) Option { return func(e *Engine) { e.stock = s } }

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
		e.buckets.metrics = m
	}
}

func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lockTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(db *gorm.DB, audit Auditor, log zerolog.Logger, opts ...Option) *Engine {
	buckets := NewStockLedger(nil)
	e := &Engine{
		db:          db,
		stock:       buckets,
		buckets:     buckets,
		audit:       audit,
		gate:        RoleGate{},
		log:         log.With().Str("component", "ledger").Logger(),
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ====== RECONCILIATION ======

// Create persists a new donation and adds its quantity to its bucket.
func (e *Engine) Create(ctx context.Context, p *Principal, f DonationFields) (*models.Donation, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	d := f.newDonation(p, e.now())

	err := e.inTx(ctx, "create", p, func(tx *gorm.DB) error {
		if key, ok := d.BucketKey(); ok {
			if err := e.stock.Lock(tx, key); err != nil {
				return err
			}
		}
		if err := e.donations.Create(tx, d); err != nil {
			return err
		}
		if _, err := e.stock.ApplyDelta(tx, deltaFor(d, +1)); err != nil {
			return err
		}
		return e.record(tx, p, models.ActionCreateDonation, d.ID, fmt.Sprintf("Donation %d created", d.ID))
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Update subtracts the previous contribution in full, applies the field
// changes, then adds the new contribution in full. Both steps floor at zero
// on their own, even when the bucket is unchanged.
func (e *Engine) Update(ctx context.Context, p *Principal, id uint, f DonationFields) (*models.Donation, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}

	var updated models.Donation
	err := e.inTx(ctx, "update", p, func(tx *gorm.DB) error {
		old, err := e.authorizeAndLoad(tx, p, id)
		if err != nil {
			return err
		}

		updated = *old
		f.applyTo(&updated)

		var keys []models.BucketKey
		if k, ok := old.BucketKey(); ok {
			keys = append(keys, k)
		}
		if k, ok := updated.BucketKey(); ok {
			keys = append(keys, k)
		}
		if err := e.stock.Lock(tx, keys...); err != nil {
			return err
		}

		if _, err := e.stock.ApplyDelta(tx, deltaFor(old, -1)); err != nil {
			return err
		}
		if err := e.donations.Update(tx, &updated); err != nil {
			return err
		}
		if _, err := e.stock.ApplyDelta(tx, deltaFor(&updated, +1)); err != nil {
			return err
		}
		return e.record(tx, p, models.ActionUpdateDonation, id, fmt.Sprintf("Donation %d updated", id))
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the donation and its contribution to its bucket.
func (e *Engine) Delete(ctx context.Context, p *Principal, id uint) error {
	if p == nil {
		return ErrUnauthorized
	}

	return e.inTx(ctx, "delete", p, func(tx *gorm.DB) error {
		old, err := e.authorizeAndLoad(tx, p, id)
		if err != nil {
			return err
		}
		if key, ok := old.BucketKey(); ok {
			if err := e.stock.Lock(tx, key); err != nil {
				return err
			}
		}
		if _, err := e.stock.ApplyDelta(tx, deltaFor(old, -1)); err != nil {
			return err
		}
		if err := e.donations.Delete(tx, id); err != nil {
			return err
		}
		return e.record(tx, p, models.ActionDeleteDonation, id, fmt.Sprintf("Donation %d deleted", id))
	})
}

// authorizeAndLoad checks the gate against the owner alone, then loads and
// locks the full donation.
func (e *Engine) authorizeAndLoad(tx *gorm.DB, p *Principal, id uint) (*models.Donation, error) {
	owner, err := e.donations.Owner(tx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(e.gate, p, owner) {
		return nil, fmt.Errorf("%w: donation %d", ErrForbidden, id)
	}
	return e.donations.GetForUpdate(tx, id)
}

func (e *Engine) record(tx *gorm.DB, p *Principal, action string, id uint, detail string) error {
	actor := p.ID
	entry := &models.AuditEntry{
		ActorID:  &actor,
		Entity:   "donation",
		EntityID: id,
		Action:   action,
		Detail:   detail,
	}
	if err := e.audit.Record(tx, entry); err != nil {
		return fmt.Errorf("%w: %v", ErrAuditWriteFailed, err)
	}
	return nil
}

func (e *Engine) inTx(ctx context.Context, op string, p *Principal, fn func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()

	start := e.now()
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", e.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
	err = classify(err)
	e.metrics.observe(op, err, e.now().Sub(start))

	switch Kind(err) {
	case "ok":
		e.log.Info().Str("op", op).Uint("actor", p.ID).Msg("donation reconciled")
	case "invalid_input", "forbidden", "not_found", "unauthorized":
		e.log.Debug().Str("op", op).Uint("actor", p.ID).Err(err).Msg("donation rejected")
	case "conflict":
		e.log.Warn().Str("op", op).Uint("actor", p.ID).Err(err).Msg("donation reconcile conflict")
	default:
		e.log.Error().Str("op", op).Uint("actor", p.ID).Err(err).Msg("donation reconcile failed")
	}
	return err
}

// ====== READS ======

// Get returns one donation the principal may see.
func (e *Engine) Get(ctx context.Context, p *Principal, id uint) (*models.Donation, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	db := e.db.WithContext(ctx)
	owner, err := e.donations.Owner(db, id)
	if err != nil {
		return nil, classify(err)
	}
	if !canModify(e.gate, p, owner) {
		return nil, fmt.Errorf("%w: donation %d", ErrForbidden, id)
	}
	d, err := e.donations.Get(db, id)
	return d, classify(err)
}

// List returns every donation for privileged principals and only their own
// for everyone else.
func (e *Engine) List(ctx context.Context, p *Principal) ([]models.Donation, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	scope := OwnedBy(p.ID)
	if e.gate.IsPrivileged(p) {
		scope = Scope{}
	}
	out, err := e.donations.List(e.db.WithContext(ctx), scope)
	return out, classify(err)
}

func (e *Engine) Bucket(ctx context.Context, key models.BucketKey) (*models.StockBucket, error) {
	b, err := e.buckets.Get(e.db.WithContext(ctx), key)
	return b, classify(err)
}

func (e *Engine) Buckets(ctx context.Context) ([]models.StockBucket, error) {
	out, err := e.buckets.List(e.db.WithContext(ctx))
	return out, classify(err)
}
