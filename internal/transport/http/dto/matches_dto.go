package dto

import "time"

type MatchItemResponse struct {
	ID           int64     `json:"id"`
	TargetUserID int64     `json:"target_user_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}
