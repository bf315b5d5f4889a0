package notify

import "context"

// Dispatcher hands state transitions to the delivery pipeline.
// Calls are fire-and-forget from the engine's perspective: a dispatch
// failure must never roll back the swipe or match that triggered it.
type Dispatcher interface {
	NotifyMatch(ctx context.Context, userA, userB, matchID int64) error
	NotifyLike(ctx context.Context, likedUserID, likerUserID, swipeID int64) error
}

// Nop is used when no delivery backend is configured (degraded mode).
type Nop struct{}

func (Nop) NotifyMatch(context.Context, int64, int64, int64) error { return nil }

func (Nop) NotifyLike(context.Context, int64, int64, int64) error { return nil }
