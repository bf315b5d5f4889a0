package rules

import "time"

const (
	// FullAllowance is the number of swipes available after a refill.
	FullAllowance = 10

	// RefillPeriod is the cooldown between exhausting the allowance and
	// the hard reset back to FullAllowance.
	RefillPeriod = 12 * time.Hour
)

// RefillDeadline computes when an allowance exhausted at the given
// instant becomes full again.
func RefillDeadline(exhaustedAt time.Time, period time.Duration) time.Time {
	if period <= 0 {
		period = RefillPeriod
	}
	return exhaustedAt.UTC().Add(period)
}

// RefillDue reports whether a stored deadline has elapsed.
func RefillDue(now time.Time, nextRefillAt *time.Time) bool {
	if nextRefillAt == nil {
		return false
	}
	return !now.UTC().Before(nextRefillAt.UTC())
}

// CanonicalPair orders two user ids so an unordered pair maps to
// exactly one (user_a, user_b) key.
func CanonicalPair(x, y int64) (int64, int64) {
	if x > y {
		return y, x
	}
	return x, y
}
