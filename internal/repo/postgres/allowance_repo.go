package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAllowanceExhausted = errors.New("swipe allowance exhausted")

type AllowanceRepo struct {
	pool *pgxpool.Pool
}

func NewAllowanceRepo(pool *pgxpool.Pool) *AllowanceRepo {
	return &AllowanceRepo{pool: pool}
}

type AllowanceRecord struct {
	UserID          int64
	Remaining       int
	LastExhaustedAt *time.Time
	NextRefillAt    *time.Time
	UpdatedAt       time.Time
}

// EnsureExists creates the counter with a full allowance on first
// touch. Existing rows are left untouched.
func (r *AllowanceRepo) EnsureExists(ctx context.Context, tx pgx.Tx, userID int64, full int, now time.Time) error {
	if userID <= 0 || full <= 0 {
		return fmt.Errorf("invalid allowance payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO allowances (
	user_id,
	remaining,
	last_exhausted_at,
	next_refill_at,
	updated_at
) VALUES ($1, $2, NULL, NULL, $3)
ON CONFLICT (user_id) DO NOTHING
`, userID, full, now.UTC()); err != nil {
		return fmt.Errorf("ensure allowance row: %w", err)
	}

	return nil
}

// Refill performs the hard reset when the stored deadline has elapsed.
// The WHERE predicate makes concurrent callers idempotent: exactly one
// observes a row to update, the rest see zero rows affected.
func (r *AllowanceRepo) Refill(ctx context.Context, tx pgx.Tx, userID int64, full int, now time.Time) (bool, error) {
	if userID <= 0 || full <= 0 {
		return false, fmt.Errorf("invalid allowance refill payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := tx.Exec(ctx, `
UPDATE allowances
SET
	remaining = $2,
	last_exhausted_at = NULL,
	next_refill_at = NULL,
	updated_at = $3
WHERE
	user_id = $1
	AND remaining = 0
	AND next_refill_at IS NOT NULL
	AND next_refill_at <= $3
`, userID, full, now.UTC())
	if err != nil {
		return false, fmt.Errorf("refill allowance: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Consume decrements by one in a single statement; the row lock taken
// by UPDATE serializes concurrent consumers so the last unit is handed
// out exactly once. Hitting zero sets both exhaustion timestamps in
// the same atomic unit. No row qualifies when remaining is already
// zero, which surfaces as ErrAllowanceExhausted.
func (r *AllowanceRepo) Consume(ctx context.Context, tx pgx.Tx, userID int64, now, refillAt time.Time) (AllowanceRecord, error) {
	if userID <= 0 {
		return AllowanceRecord{}, fmt.Errorf("invalid allowance consume payload")
	}
	if tx == nil {
		return AllowanceRecord{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec AllowanceRecord
	err := tx.QueryRow(ctx, `
UPDATE allowances
SET
	remaining = remaining - 1,
	last_exhausted_at = CASE WHEN remaining - 1 = 0 THEN $2 ELSE NULL END,
	next_refill_at = CASE WHEN remaining - 1 = 0 THEN $3 ELSE NULL END,
	updated_at = $2
WHERE user_id = $1 AND remaining > 0
RETURNING user_id, remaining, last_exhausted_at, next_refill_at, updated_at
`, userID, now.UTC(), refillAt.UTC()).Scan(
		&rec.UserID,
		&rec.Remaining,
		&rec.LastExhaustedAt,
		&rec.NextRefillAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AllowanceRecord{}, ErrAllowanceExhausted
		}
		return AllowanceRecord{}, fmt.Errorf("consume allowance: %w", err)
	}

	return rec, nil
}

func (r *AllowanceRepo) Get(ctx context.Context, tx pgx.Tx, userID int64) (AllowanceRecord, error) {
	if userID <= 0 {
		return AllowanceRecord{}, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return AllowanceRecord{}, fmt.Errorf("transaction is required")
	}

	var rec AllowanceRecord
	err := tx.QueryRow(ctx, `
SELECT user_id, remaining, last_exhausted_at, next_refill_at, updated_at
FROM allowances
WHERE user_id = $1
`, userID).Scan(
		&rec.UserID,
		&rec.Remaining,
		&rec.LastExhaustedAt,
		&rec.NextRefillAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return AllowanceRecord{}, fmt.Errorf("get allowance: %w", err)
	}

	return rec, nil
}
