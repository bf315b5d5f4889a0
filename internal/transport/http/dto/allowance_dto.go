package dto

import "time"

type AllowanceResponse struct {
	Remaining    int        `json:"remaining"`
	Full         int        `json:"full"`
	NextRefillAt *time.Time `json:"next_refill_at"`
}
