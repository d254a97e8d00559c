// Package types contains the read models shared by the service and the API.
package types

import (
	"time"

	"github.com/okian/trainerscope/internal/domain/gamification"
	"github.com/okian/trainerscope/internal/domain/scoring"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	TotalXP   int64  `json:"total_xp"`
	Level     int    `json:"level"`
	LevelName string `json:"level_name"`
}

// TrainerSummary is the aggregate view of one trainer's assessments.
type TrainerSummary struct {
	TrainerID string `json:"trainer_id"`
	scoring.Summary
	Suggestions []scoring.Suggestion `json:"suggestions"`
}

// Streak is the read shape of an activity streak. Dates are YYYY-MM-DD.
type Streak struct {
	Type         string `json:"type"`
	Current      int    `json:"current"`
	Longest      int    `json:"longest"`
	LastActivity string `json:"last_activity_date,omitempty"`
	StartedAt    string `json:"streak_start_date,omitempty"`
}

// Badge is a held badge joined with its catalog entry.
type Badge struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	AssessmentID string    `json:"assessment_id,omitempty"`
	AwardedAt    time.Time `json:"awarded_at"`
}

// UserProgress bundles a user's XP, streaks and badges.
type UserProgress struct {
	UserID    string                 `json:"user_id"`
	Level     gamification.LevelInfo `json:"level"`
	LevelUpAt *time.Time             `json:"level_up_at,omitempty"`
	Streaks   []Streak               `json:"streaks"`
	Badges    []Badge                `json:"badges"`
}
