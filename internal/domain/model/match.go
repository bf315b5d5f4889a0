package model

import (
	"time"

	"github.com/Douba03/Datingapp-sub001/internal/domain/enums"
)

// Match is the unordered-pair record; UserAID is always the smaller id
// so the pair addresses a single row.
type Match struct {
	ID        int64             `json:"id"`
	UserAID   int64             `json:"user_a_id"`
	UserBID   int64             `json:"user_b_id"`
	Status    enums.MatchStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}
