package gamification

import (
	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/internal/domain/scoring"
)

// Badge thresholds.
const (
	badgeScore       = 4.0
	consistentWindow = 5
)

// Badge ids.
const (
	BadgeHighAchiever         model.BadgeID = "high_achiever"
	BadgeConsistentExcellence model.BadgeID = "consistent_excellence"
	BadgeWellRounded          model.BadgeID = "well_rounded"
)

// Badge is an achievement with the predicate that earns it. Predicates
// receive a trainer's history sorted most recent first and are pure; holding
// a badge twice is prevented by the progress store.
type Badge struct {
	ID          model.BadgeID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	earned      func(newestFirst []model.Assessment) bool
}

var catalog = []Badge{
	{
		ID:          BadgeHighAchiever,
		Name:        "High Achiever",
		Description: "Received an assessment averaging 4.0 or more",
		earned:      HighAchiever,
	},
	{
		ID:          BadgeConsistentExcellence,
		Name:        "Consistent Excellence",
		Description: "Five most recent assessments all averaged 4.0 or more",
		earned:      ConsistentExcellence,
	},
	{
		ID:          BadgeWellRounded,
		Name:        "Well Rounded",
		Description: "Every core parameter rated 4 or more on the latest assessment",
		earned:      WellRounded,
	},
}

// Catalog lists every badge.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a badge by id.
func Lookup(id model.BadgeID) (Badge, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// HighAchiever holds when any assessment averages at least 4.0.
func HighAchiever(newestFirst []model.Assessment) bool {
	for i := range newestFirst {
		if scoring.RecordAverage(&newestFirst[i]) >= badgeScore {
			return true
		}
	}
	return false
}

// ConsistentExcellence holds when the five most recent assessments all
// average at least 4.0.
func ConsistentExcellence(newestFirst []model.Assessment) bool {
	if len(newestFirst) < consistentWindow {
		return false
	}
	for i := 0; i < consistentWindow; i++ {
		if scoring.RecordAverage(&newestFirst[i]) < badgeScore {
			return false
		}
	}
	return true
}

// WellRounded holds when every legacy parameter on the most recent
// assessment is rated at least 4.
func WellRounded(newestFirst []model.Assessment) bool {
	if len(newestFirst) == 0 {
		return false
	}
	latest := &newestFirst[0]
	for _, p := range model.LegacyParameters {
		if float64(latest.Ratings.Get(p)) < badgeScore {
			return false
		}
	}
	return true
}

// EarnedBadges evaluates every badge over history, which may be in any
// order. It returns the ids of all badges whose predicate holds.
func EarnedBadges(history []model.Assessment) []model.BadgeID {
	sorted := model.NewestFirst(history)
	var out []model.BadgeID
	for _, b := range catalog {
		if b.earned(sorted) {
			out = append(out, b.ID)
		}
	}
	return out
}
