package postgres

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Douba03/Datingapp-sub001/internal/domain/enums"
	"github.com/Douba03/Datingapp-sub001/internal/domain/rules"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

type MatchRecord struct {
	ID        int64
	UserAID   int64
	UserBID   int64
	Status    string
	CreatedAt time.Time
}

// LockPair takes a transaction-scoped advisory lock on the canonical
// pair. Under READ COMMITTED two transactions inserting the two halves
// of a mutual like can each miss the other's uncommitted swipe; the
// lock serializes them so the second reciprocal lookup runs after the
// first transaction committed. Released automatically at commit or
// rollback.
func (r *MatchRepo) LockPair(ctx context.Context, tx pgx.Tx, userX, userY int64) error {
	if userX <= 0 || userY <= 0 || userX == userY {
		return fmt.Errorf("invalid match pair")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	userA, userB := rules.CanonicalPair(userX, userY)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, pairLockKey(userA, userB)); err != nil {
		return fmt.Errorf("lock match pair: %w", err)
	}

	return nil
}

func pairLockKey(userA, userB int64) int64 {
	h := fnv.New64a()
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(userA))
	binary.BigEndian.PutUint64(buf[8:], uint64(userB))
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}

// CreateIfAbsent inserts the canonical-pair row with status 'active'.
// Under concurrent double-invocation the unique constraint on
// (user_a_id, user_b_id) lets exactly one insert win; the loser reads
// the existing row and reports created=false.
func (r *MatchRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, userX, userY int64, now time.Time) (MatchRecord, bool, error) {
	if userX <= 0 || userY <= 0 || userX == userY {
		return MatchRecord{}, false, fmt.Errorf("invalid match payload")
	}
	if tx == nil {
		return MatchRecord{}, false, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userA, userB := rules.CanonicalPair(userX, userY)

	var rec MatchRecord
	err := tx.QueryRow(ctx, `
INSERT INTO matches (
	user_a_id,
	user_b_id,
	status,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
RETURNING id, user_a_id, user_b_id, status, created_at
`, userA, userB, enums.MatchStatusActive.String(), now.UTC()).Scan(
		&rec.ID,
		&rec.UserAID,
		&rec.UserBID,
		&rec.Status,
		&rec.CreatedAt,
	)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return MatchRecord{}, false, fmt.Errorf("create match: %w", err)
	}

	existing, err := r.GetByUsers(ctx, tx, userA, userB)
	if err != nil {
		return MatchRecord{}, false, err
	}

	return existing, false, nil
}

func (r *MatchRepo) GetByUsers(ctx context.Context, tx pgx.Tx, userX, userY int64) (MatchRecord, error) {
	if userX <= 0 || userY <= 0 {
		return MatchRecord{}, fmt.Errorf("invalid match lookup payload")
	}
	if tx == nil {
		return MatchRecord{}, fmt.Errorf("transaction is required")
	}

	userA, userB := rules.CanonicalPair(userX, userY)

	var rec MatchRecord
	err := tx.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, status, created_at
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2
`, userA, userB).Scan(
		&rec.ID,
		&rec.UserAID,
		&rec.UserBID,
		&rec.Status,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, ErrMatchNotFound
		}
		return MatchRecord{}, fmt.Errorf("get match by users: %w", err)
	}

	return rec, nil
}

func (r *MatchRepo) ListActiveForUser(ctx context.Context, userID int64, limit int) ([]MatchRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MatchRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_a_id, user_b_id, status, created_at
FROM matches
WHERE
	(user_a_id = $1 OR user_b_id = $1)
	AND status = $2
ORDER BY created_at DESC, id DESC
LIMIT $3
`, userID, enums.MatchStatusActive.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchRecord, 0, limit)
	for rows.Next() {
		var rec MatchRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserAID,
			&rec.UserBID,
			&rec.Status,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan active match: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate active matches: %w", rows.Err())
	}

	return items, nil
}
