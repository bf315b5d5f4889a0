package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateSwipe = errors.New("swipe already recorded for this pair")

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type SwipeRecord struct {
	ID           int64
	SwiperUserID int64
	TargetUserID int64
	Action       string
	CreatedAt    time.Time
}

// Create inserts the ordered-pair row. The unique constraint on
// (swiper_user_id, target_user_id) turns a re-swipe into
// ErrDuplicateSwipe instead of a second row.
func (r *SwipeRepo) Create(ctx context.Context, tx pgx.Tx, swiperUserID, targetUserID int64, action string, now time.Time) (SwipeRecord, error) {
	if swiperUserID <= 0 || targetUserID <= 0 || strings.TrimSpace(action) == "" {
		return SwipeRecord{}, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return SwipeRecord{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec SwipeRecord
	err := tx.QueryRow(ctx, `
INSERT INTO swipes (
	swiper_user_id,
	target_user_id,
	action,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (swiper_user_id, target_user_id) DO NOTHING
RETURNING id, swiper_user_id, target_user_id, action, created_at
`, swiperUserID, targetUserID, strings.ToUpper(strings.TrimSpace(action)), now.UTC()).Scan(
		&rec.ID,
		&rec.SwiperUserID,
		&rec.TargetUserID,
		&rec.Action,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SwipeRecord{}, ErrDuplicateSwipe
		}
		return SwipeRecord{}, fmt.Errorf("create swipe: %w", err)
	}

	return rec, nil
}

// HasLikeClassFrom reports whether a LIKE or SUPERLIKE exists for the
// ordered pair (from, to).
func (r *SwipeRepo) HasLikeClassFrom(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (bool, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return false, fmt.Errorf("invalid swipe lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM swipes
WHERE
	swiper_user_id = $1
	AND target_user_id = $2
	AND action IN ('LIKE', 'SUPERLIKE')
LIMIT 1
`, fromUserID, toUserID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reciprocal like: %w", err)
	}

	return true, nil
}
