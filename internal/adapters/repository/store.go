// Package repository persists assessments and gamification progress and
// keeps the XP leaderboard.
package repository

import (
	"context"
	"time"

	"github.com/okian/trainerscope/internal/domain/model"
)

// AssessmentStore provides access to stored assessments. List methods return
// records most recent first.
type AssessmentStore interface {
	// InsertAssessment stores a new assessment.
	// Returns ErrAlreadyExists if the id is taken.
	InsertAssessment(ctx context.Context, a model.Assessment) error

	// GetAssessment returns ErrNotFound if the id is unknown.
	GetAssessment(ctx context.Context, id string) (model.Assessment, error)

	ListByTrainer(ctx context.Context, trainerID string) ([]model.Assessment, error)
	ListByAssessor(ctx context.Context, assessorID string) ([]model.Assessment, error)

	// ListRecent returns at most limit assessments across all trainers.
	ListRecent(ctx context.Context, limit int) ([]model.Assessment, error)
	ListAssessments(ctx context.Context) ([]model.Assessment, error)
	CountAssessments(ctx context.Context) (int, error)

	// LastAssessmentDate returns the date of the newest assessment given by
	// assessorID, or nil when they have never assessed.
	LastAssessmentDate(ctx context.Context, assessorID string) (*time.Time, error)
}

// ProgressStore holds per-user XP, streaks and badges. UpdateXP and
// UpdateStreak run fn as an atomic read-modify-write for one user.
type ProgressStore interface {
	// GetXP returns ErrNotFound if the user has never earned XP.
	GetXP(ctx context.Context, userID string) (model.UserXP, error)
	ListXP(ctx context.Context) ([]model.UserXP, error)
	UpdateXP(ctx context.Context, userID string, fn func(model.UserXP) model.UserXP) (model.UserXP, error)

	ListStreaks(ctx context.Context, userID string) ([]model.Streak, error)
	UpdateStreak(ctx context.Context, userID string, typ model.ActivityType, fn func(*model.Streak) model.Streak) (model.Streak, error)

	// AwardBadge stores b and reports false when the user already holds it.
	AwardBadge(ctx context.Context, b model.UserBadge) (bool, error)
	ListBadges(ctx context.Context, userID string) ([]model.UserBadge, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	AssessmentStore
	ProgressStore
	Close() error
}
