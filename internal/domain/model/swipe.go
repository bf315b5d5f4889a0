package model

import (
	"time"

	"github.com/Douba03/Datingapp-sub001/internal/domain/enums"
)

// Swipe is one directional action, immutable once written. At most one
// row exists per ordered (swiper, target) pair.
type Swipe struct {
	ID           int64             `json:"id"`
	SwiperUserID int64             `json:"swiper_user_id"`
	TargetUserID int64             `json:"target_user_id"`
	Action       enums.SwipeAction `json:"action"`
	CreatedAt    time.Time         `json:"created_at"`
}
