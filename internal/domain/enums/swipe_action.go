package enums

import "strings"

// SwipeAction is the closed set of directional swipe gestures.
type SwipeAction string

const (
	SwipeActionLike      SwipeAction = "LIKE"
	SwipeActionPass      SwipeAction = "PASS"
	SwipeActionSuperLike SwipeAction = "SUPERLIKE"
)

func ParseSwipeAction(input string) (SwipeAction, bool) {
	value := strings.ToUpper(strings.TrimSpace(input))
	value = strings.ReplaceAll(value, "_", "")
	switch SwipeAction(value) {
	case SwipeActionLike, SwipeActionPass, SwipeActionSuperLike:
		return SwipeAction(value), true
	default:
		return "", false
	}
}

func (a SwipeAction) Valid() bool {
	switch a {
	case SwipeActionLike, SwipeActionPass, SwipeActionSuperLike:
		return true
	default:
		return false
	}
}

// IsLikeClass reports whether the action can participate in match
// formation. PASS never forms a match, even when reciprocal.
func (a SwipeAction) IsLikeClass() bool {
	return a == SwipeActionLike || a == SwipeActionSuperLike
}

func (a SwipeAction) String() string {
	return string(a)
}
