package swipes

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
	"github.com/Douba03/Datingapp-sub001/internal/notify"
	pgrepo "github.com/Douba03/Datingapp-sub001/internal/repo/postgres"
	matchessvc "github.com/Douba03/Datingapp-sub001/internal/services/matches"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrAlreadySwiped marks a duplicate ordered-pair submission. The
	// unit consumed before the duplicate was detected is not refunded;
	// the client contract is query-after-timeout, not blind retry.
	ErrAlreadySwiped = errors.New("already swiped on this profile")
)

// OutOfSwipesError carries the refill deadline so the client can render
// a countdown.
type OutOfSwipesError struct {
	NextRefillAt *time.Time
}

func (e OutOfSwipesError) Error() string {
	return "out of swipes"
}

func IsOutOfSwipes(err error) (*OutOfSwipesError, bool) {
	var oos OutOfSwipesError
	if errors.As(err, &oos) {
		return &oos, true
	}
	return nil, false
}

// TooFastError is the burst limiter refusal, before any durable state
// is touched.
type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type AllowanceGate interface {
	TryConsumeTx(ctx context.Context, tx pgx.Tx, userID int64) (bool, model.AllowanceCounter, error)
}

type SwipeStore interface {
	Create(ctx context.Context, tx pgx.Tx, swiperUserID, targetUserID int64, action string, now time.Time) (pgrepo.SwipeRecord, error)
}

type MatchDetector interface {
	DetectAndFormMatch(ctx context.Context, tx pgx.Tx, userX, userY int64) (matchessvc.Result, error)
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, userID int64) (int64, bool, error)
}

type Result struct {
	Remaining    int
	NextRefillAt *time.Time
	MatchCreated bool
	MatchID      int64
}

// Service is the single entry point that turns a swipe gesture into
// durable state: burst gate, allowance consume, ledger insert, match
// detection, then notification dispatch after commit.
type Service struct {
	pool        *pgxpool.Pool
	allowance   AllowanceGate
	swipeStore  SwipeStore
	detector    MatchDetector
	rateLimiter RateLimiter
	dispatcher  notify.Dispatcher
	now         func() time.Time
	runTx       func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	Allowance   AllowanceGate
	SwipeStore  SwipeStore
	Detector    MatchDetector
	RateLimiter RateLimiter
	Dispatcher  notify.Dispatcher
}

func NewService(deps Dependencies) *Service {
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = notify.Nop{}
	}

	s := &Service{
		pool:        deps.Pool,
		allowance:   deps.Allowance,
		swipeStore:  deps.SwipeStore,
		detector:    deps.Detector,
		rateLimiter: deps.RateLimiter,
		dispatcher:  dispatcher,
		now:         time.Now,
	}
	s.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// RecordSwipe consumes one allowance unit, records the directional
// swipe, and forms a match when the target already liked back. A
// duplicate submission still costs the consumed unit: the transaction
// commits the decrement and the duplicate surfaces afterwards.
func (s *Service) RecordSwipe(ctx context.Context, swiperID, targetID int64, action string) (Result, error) {
	if swiperID <= 0 || targetID <= 0 {
		return Result{}, ErrValidation
	}
	if swiperID == targetID {
		return Result{}, ErrValidation
	}

	parsed, ok := enums.ParseSwipeAction(action)
	if !ok {
		return Result{}, ErrUnsupportedAction
	}

	if s.allowance == nil || s.swipeStore == nil || s.detector == nil {
		return Result{}, fmt.Errorf("swipe dependencies are not configured")
	}

	if s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowSwipe(ctx, swiperID)
		if err != nil {
			return Result{}, fmt.Errorf("apply burst rate limiter: %w", err)
		}
		if !allowed {
			metrics.ObserveSwipe(parsed.String(), metrics.OutcomeTooFast)
			return Result{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	now := s.now().UTC()

	var (
		result    Result
		swipeID   int64
		duplicate bool
	)
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		allowed, counter, err := s.allowance.TryConsumeTx(txCtx, tx, swiperID)
		if err != nil {
			return err
		}
		if !allowed {
			return OutOfSwipesError{NextRefillAt: counter.NextRefillAt}
		}
		result.Remaining = counter.Remaining
		result.NextRefillAt = counter.NextRefillAt

		rec, err := s.swipeStore.Create(txCtx, tx, swiperID, targetID, parsed.String(), now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrDuplicateSwipe) {
				// Commit the decrement anyway; no refund on
				// double-submit.
				duplicate = true
				return nil
			}
			return err
		}
		swipeID = rec.ID

		if parsed.IsLikeClass() {
			detection, err := s.detector.DetectAndFormMatch(txCtx, tx, swiperID, targetID)
			if err != nil {
				return err
			}
			result.MatchCreated = detection.Created
			if detection.Created {
				result.MatchID = detection.Match.ID
			}
		}
		return nil
	})
	if err != nil {
		if _, ok := IsOutOfSwipes(err); ok {
			metrics.ObserveSwipe(parsed.String(), metrics.OutcomeOutOfSwipes)
		} else {
			metrics.ObserveSwipe(parsed.String(), metrics.OutcomeError)
		}
		return Result{}, err
	}

	if duplicate {
		metrics.ObserveSwipe(parsed.String(), metrics.OutcomeDuplicate)
		return Result{Remaining: result.Remaining, NextRefillAt: result.NextRefillAt}, ErrAlreadySwiped
	}

	metrics.ObserveSwipe(parsed.String(), metrics.OutcomeRecorded)
	s.dispatch(ctx, swiperID, targetID, swipeID, parsed, result)

	return result, nil
}

// dispatch runs after commit. Failures never propagate: the dispatcher
// logs and the downstream consumer owns retries. The request context
// may already be cancelled client-side, so the calls detach from it.
func (s *Service) dispatch(ctx context.Context, swiperID, targetID, swipeID int64, action enums.SwipeAction, result Result) {
	if !action.IsLikeClass() {
		return
	}

	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if result.MatchCreated {
		_ = s.dispatcher.NotifyMatch(dispatchCtx, swiperID, targetID, result.MatchID)
		return
	}
	_ = s.dispatcher.NotifyLike(dispatchCtx, targetID, swiperID, swipeID)
}
