package allowance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Douba03/Datingapp-sub001/internal/domain/model"
	"github.com/Douba03/Datingapp-sub001/internal/domain/rules"
	"github.com/Douba03/Datingapp-sub001/internal/infra/metrics"
	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type CounterStore interface {
	EnsureExists(ctx context.Context, tx pgx.Tx, userID int64, full int, now time.Time) error
	Refill(ctx context.Context, tx pgx.Tx, userID int64, full int, now time.Time) (bool, error)
	Consume(ctx context.Context, tx pgx.Tx, userID int64, now, refillAt time.Time) (pgrepo.AllowanceRecord, error)
	Get(ctx context.Context, tx pgx.Tx, userID int64) (pgrepo.AllowanceRecord, error)
}

type Config struct {
	FullAllowance int
	RefillPeriod  time.Duration
}

// Snapshot is the client-facing allowance view.
type Snapshot struct {
	Remaining    int
	NextRefillAt *time.Time
}

// Manager answers "can this user swipe right now" and owns the refill
// clock. Refill is evaluated lazily on every read or consume; no
// background job advances it.
type Manager struct {
	pool  *pgxpool.Pool
	store CounterStore
	cfg   Config
	now   func() time.Time
}

func NewManager(pool *pgxpool.Pool, store CounterStore, cfg Config) *Manager {
	if cfg.FullAllowance <= 0 {
		cfg.FullAllowance = rules.FullAllowance
	}
	if cfg.RefillPeriod <= 0 {
		cfg.RefillPeriod = rules.RefillPeriod
	}

	return &Manager{
		pool:  pool,
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// CheckAndRefillTx ensures the counter row exists and applies a due
// refill, all within the caller's transaction. Safe under concurrent
// invocation: the store's conditional update lets only one caller
// perform the reset.
func (m *Manager) CheckAndRefillTx(ctx context.Context, tx pgx.Tx, userID int64) (model.AllowanceCounter, error) {
	if userID <= 0 {
		return model.AllowanceCounter{}, ErrValidation
	}
	if m.store == nil {
		return model.AllowanceCounter{}, fmt.Errorf("allowance store is not configured")
	}

	now := m.now().UTC()

	if err := m.store.EnsureExists(ctx, tx, userID, m.cfg.FullAllowance, now); err != nil {
		return model.AllowanceCounter{}, err
	}

	rec, err := m.store.Get(ctx, tx, userID)
	if err != nil {
		return model.AllowanceCounter{}, err
	}

	if rec.Remaining == 0 && rules.RefillDue(now, rec.NextRefillAt) {
		refilled, err := m.store.Refill(ctx, tx, userID, m.cfg.FullAllowance, now)
		if err != nil {
			return model.AllowanceCounter{}, err
		}
		if refilled {
			metrics.AllowanceRefilled()
		}

		rec, err = m.store.Get(ctx, tx, userID)
		if err != nil {
			return model.AllowanceCounter{}, err
		}
	}

	return toCounter(rec), nil
}

// TryConsumeTx consumes one unit if any remain. The decrement and, on
// the last unit, both exhaustion timestamps happen in one atomic
// statement inside the caller's transaction.
func (m *Manager) TryConsumeTx(ctx context.Context, tx pgx.Tx, userID int64) (bool, model.AllowanceCounter, error) {
	counter, err := m.CheckAndRefillTx(ctx, tx, userID)
	if err != nil {
		return false, model.AllowanceCounter{}, err
	}

	now := m.now().UTC()
	refillAt := rules.RefillDeadline(now, m.cfg.RefillPeriod)

	rec, err := m.store.Consume(ctx, tx, userID, now, refillAt)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAllowanceExhausted) {
			return false, counter, nil
		}
		return false, model.AllowanceCounter{}, err
	}

	return true, toCounter(rec), nil
}

// CheckAndRefill is the standalone form for callers outside an open
// transaction.
func (m *Manager) CheckAndRefill(ctx context.Context, userID int64) (model.AllowanceCounter, error) {
	var counter model.AllowanceCounter
	err := pgrepo.WithTx(ctx, m.pool, func(txCtx context.Context, tx pgx.Tx) error {
		c, err := m.CheckAndRefillTx(txCtx, tx, userID)
		if err != nil {
			return err
		}
		counter = c
		return nil
	})
	if err != nil {
		return model.AllowanceCounter{}, err
	}

	return counter, nil
}

func (m *Manager) FullAllowance() int {
	return m.cfg.FullAllowance
}

// Get returns the client-facing allowance view, refilling first when
// due, so polling this is enough to observe a reset.
func (m *Manager) Get(ctx context.Context, userID int64) (Snapshot, error) {
	counter, err := m.CheckAndRefill(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Remaining:    counter.Remaining,
		NextRefillAt: counter.NextRefillAt,
	}, nil
}

func toCounter(rec pgrepo.AllowanceRecord) model.AllowanceCounter {
	return model.AllowanceCounter{
		UserID:          rec.UserID,
		Remaining:       rec.Remaining,
		LastExhaustedAt: rec.LastExhaustedAt,
		NextRefillAt:    rec.NextRefillAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}
