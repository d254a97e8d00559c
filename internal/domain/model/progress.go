package model

import "time"

// ActivityType names a streak-bearing user activity.
type ActivityType string

// Activity types produced by an assessment submission.
const (
	ActivityAssessmentGiven    ActivityType = "assessment_given"
	ActivityAssessmentReceived ActivityType = "assessment_received"
)

// Activity is a gamification event derived from a stored assessment. Each
// submission yields one activity for the assessor and one for the trainer.
type Activity struct {
	ID           string
	UserID       string
	Type         ActivityType
	AssessmentID string
	Date         time.Time // assessment calendar date
	Average      float64   // overall average of the assessment
	OccurredAt   time.Time
}

// UserXP is a user's cumulative experience. Level and LevelXP are derived
// from TotalXP whenever it changes.
type UserXP struct {
	UserID    string
	TotalXP   int64
	Level     int
	LevelXP   int64
	LevelUpAt *time.Time
	UpdatedAt time.Time
}

// Streak tracks consecutive active calendar days for one activity type.
type Streak struct {
	UserID       string
	Type         ActivityType
	Current      int
	Longest      int
	LastActivity time.Time
	StartedAt    time.Time
}

// BadgeID identifies an achievement.
type BadgeID string

// UserBadge records a badge held by a user.
type UserBadge struct {
	UserID       string
	Badge        BadgeID
	AssessmentID string
	AwardedAt    time.Time
}
