package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	kindMatchFormed  = "match_formed"
	kindLikeReceived = "like_received"
)

type StreamPublisher interface {
	Publish(ctx context.Context, stream string, values map[string]any) (string, error)
}

// StreamDispatcher publishes notification events to a Redis stream.
// Failures are logged and swallowed; retrying delivery is the
// consumer's job, not the swipe path's.
type StreamDispatcher struct {
	publisher StreamPublisher
	stream    string
	log       *zap.Logger
	now       func() time.Time
}

func NewStreamDispatcher(publisher StreamPublisher, stream string, log *zap.Logger) *StreamDispatcher {
	if log == nil {
		log = zap.NewNop()
	}

	return &StreamDispatcher{
		publisher: publisher,
		stream:    stream,
		log:       log,
		now:       time.Now,
	}
}

func (d *StreamDispatcher) NotifyMatch(ctx context.Context, userA, userB, matchID int64) error {
	return d.publish(ctx, map[string]any{
		"event_id":  uuid.NewString(),
		"kind":      kindMatchFormed,
		"user_a_id": strconv.FormatInt(userA, 10),
		"user_b_id": strconv.FormatInt(userB, 10),
		"match_id":  strconv.FormatInt(matchID, 10),
		"ts":        strconv.FormatInt(d.now().UTC().UnixMilli(), 10),
	})
}

func (d *StreamDispatcher) NotifyLike(ctx context.Context, likedUserID, likerUserID, swipeID int64) error {
	return d.publish(ctx, map[string]any{
		"event_id": uuid.NewString(),
		"kind":     kindLikeReceived,
		"liked_id": strconv.FormatInt(likedUserID, 10),
		"liker_id": strconv.FormatInt(likerUserID, 10),
		"swipe_id": strconv.FormatInt(swipeID, 10),
		"ts":       strconv.FormatInt(d.now().UTC().UnixMilli(), 10),
	})
}

func (d *StreamDispatcher) publish(ctx context.Context, values map[string]any) error {
	if d.publisher == nil {
		return fmt.Errorf("stream publisher is nil")
	}
	if d.stream == "" {
		return fmt.Errorf("notify stream is not configured")
	}

	id, err := d.publisher.Publish(ctx, d.stream, values)
	if err != nil {
		d.log.Warn("notification dispatch failed",
			zap.String("kind", fmt.Sprint(values["kind"])),
			zap.Error(err),
		)
		return err
	}

	d.log.Debug("notification dispatched",
		zap.String("kind", fmt.Sprint(values["kind"])),
		zap.String("stream_id", id),
	)
	return nil
}
