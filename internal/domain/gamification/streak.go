package gamification

import (
	"time"

	"github.com/okian/trainerscope/internal/domain/model"
)

// AdvanceStreak applies an activity on calendar date day to prev and returns
// the new streak. A nil prev starts a streak of one. Days are compared at
// calendar granularity:
//
//	same day      -> unchanged
//	next day      -> current + 1
//	later gap     -> current resets to 1 and starts at the new day
//
// Activities dated before the last recorded day leave the streak unchanged.
func AdvanceStreak(prev *model.Streak, userID string, typ model.ActivityType, day time.Time) model.Streak {
	day = model.Date(day)
	if prev == nil || prev.LastActivity.IsZero() {
		return model.Streak{
			UserID:       userID,
			Type:         typ,
			Current:      1,
			Longest:      1,
			LastActivity: day,
			StartedAt:    day,
		}
	}

	next := *prev
	switch d := model.DaysBetween(prev.LastActivity, day); {
	case d <= 0:
		return next
	case d == 1:
		next.Current++
	default:
		next.Current = 1
		next.StartedAt = day
	}
	next.LastActivity = day
	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	return next
}
