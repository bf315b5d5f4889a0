package model

import "time"

// AllowanceCounter is the per-user swipe budget. Both exhaustion
// timestamps are set in the same write that spends the last unit and
// cleared together on refill.
type AllowanceCounter struct {
	UserID          int64      `json:"user_id"`
	Remaining       int        `json:"remaining"`
	LastExhaustedAt *time.Time `json:"last_exhausted_at"`
	NextRefillAt    *time.Time `json:"next_refill_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
