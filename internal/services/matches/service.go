package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Douba03/Datingapp-sub001/internal/domain/enums"
	"github.com/Douba03/Datingapp-sub001/internal/domain/model"
	"github.com/Douba03/Datingapp-sub001/internal/infra/metrics"
	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type SwipeLedger interface {
	HasLikeClassFrom(ctx context.Context, tx pgx.Tx, fromUserID, toUserID int64) (bool, error)
}

type MatchStore interface {
	LockPair(ctx context.Context, tx pgx.Tx, userX, userY int64) error
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, userX, userY int64, now time.Time) (pgrepo.MatchRecord, bool, error)
	ListActiveForUser(ctx context.Context, userID int64, limit int) ([]pgrepo.MatchRecord, error)
}

type Result struct {
	Created bool
	Match   model.Match
}

type Service struct {
	pool   *pgxpool.Pool
	ledger SwipeLedger
	store  MatchStore
	now    func() time.Time
}

type Dependencies struct {
	Pool   *pgxpool.Pool
	Ledger SwipeLedger
	Store  MatchStore
}

func NewService(deps Dependencies) *Service {
	return &Service{
		pool:   deps.Pool,
		ledger: deps.Ledger,
		store:  deps.Store,
		now:    time.Now,
	}
}

// DetectAndFormMatch checks for a reciprocal like-class swipe from
// userY back to userX and creates the match record at most once,
// within the same transaction that inserted the triggering swipe. The
// pair lock is taken before the reciprocal lookup: when both halves of
// a mutual like run concurrently, the second transaction waits until
// the first committed and then sees its swipe, so exactly one of them
// forms the match. Same-direction double-invocation is resolved by the
// store's uniqueness constraint: the loser gets the existing record
// and Created=false.
func (s *Service) DetectAndFormMatch(ctx context.Context, tx pgx.Tx, userX, userY int64) (Result, error) {
	if userX <= 0 || userY <= 0 || userX == userY {
		return Result{}, ErrValidation
	}
	if s.ledger == nil || s.store == nil {
		return Result{}, fmt.Errorf("match dependencies are not configured")
	}

	if err := s.store.LockPair(ctx, tx, userX, userY); err != nil {
		return Result{}, err
	}

	reciprocal, err := s.ledger.HasLikeClassFrom(ctx, tx, userY, userX)
	if err != nil {
		return Result{}, err
	}
	if !reciprocal {
		return Result{}, nil
	}

	rec, created, err := s.store.CreateIfAbsent(ctx, tx, userX, userY, s.now().UTC())
	if err != nil {
		return Result{}, err
	}
	if created {
		metrics.MatchFormed()
	}

	return Result{
		Created: created,
		Match:   toMatch(rec),
	}, nil
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]model.Match, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("match store is nil")
	}

	rows, err := s.store.ListActiveForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]model.Match, 0, len(rows))
	for _, row := range rows {
		items = append(items, toMatch(row))
	}
	return items, nil
}

func toMatch(rec pgrepo.MatchRecord) model.Match {
	return model.Match{
		ID:        rec.ID,
		UserAID:   rec.UserAID,
		UserBID:   rec.UserBID,
		Status:    enums.MatchStatus(rec.Status),
		CreatedAt: rec.CreatedAt,
	}
}
