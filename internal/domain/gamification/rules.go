package gamification

import "github.com/okian/trainerscope/internal/domain/model"

// Default XP awards.
const (
	DefaultXPPerAssessmentGiven    = 50
	DefaultXPPerAssessmentReceived = 30
	DefaultXPPerBadge              = 100
	DefaultXPHighScoreBonus        = 20
	DefaultHighScoreThreshold      = 4.5
)

// Rules decides how much XP each event is worth.
type Rules struct {
	PerAssessmentGiven    int64
	PerAssessmentReceived int64
	PerBadge              int64
	HighScoreBonus        int64
	HighScoreThreshold    float64
}

// DefaultRules returns the standard XP table.
func DefaultRules() Rules {
	return Rules{
		PerAssessmentGiven:    DefaultXPPerAssessmentGiven,
		PerAssessmentReceived: DefaultXPPerAssessmentReceived,
		PerBadge:              DefaultXPPerBadge,
		HighScoreBonus:        DefaultXPHighScoreBonus,
		HighScoreThreshold:    DefaultHighScoreThreshold,
	}
}

// ForActivity is the XP earned by a single activity.
func (r Rules) ForActivity(a model.Activity) int64 {
	switch a.Type {
	case model.ActivityAssessmentGiven:
		return r.PerAssessmentGiven
	case model.ActivityAssessmentReceived:
		xp := r.PerAssessmentReceived
		if a.Average >= r.HighScoreThreshold {
			xp += r.HighScoreBonus
		}
		return xp
	default:
		return 0
	}
}
