package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/trainerscope/internal/domain/model"
)

// ProgressStore persists per-user gamification state. The update methods run
// fn as an atomic read-modify-write for one user.
type ProgressStore interface {
	UpdateXP(ctx context.Context, userID string, fn func(model.UserXP) model.UserXP) (model.UserXP, error)
	UpdateStreak(ctx context.Context, userID string, typ model.ActivityType, fn func(*model.Streak) model.Streak) (model.Streak, error)
	// AwardBadge stores b and reports false when the user already holds it.
	AwardBadge(ctx context.Context, b model.UserBadge) (bool, error)
}

// HistoryReader loads a trainer's assessments.
type HistoryReader interface {
	ListByTrainer(ctx context.Context, trainerID string) ([]model.Assessment, error)
}

// Leaderboard receives the new XP total of a user.
type Leaderboard interface {
	UpsertXP(ctx context.Context, userID string, totalXP int64) error
}

// Outcome summarises what one activity changed.
type Outcome struct {
	UserID    string
	XPAwarded int64
	XP        model.UserXP
	LeveledUp bool
	Streak    model.Streak
	Badges    []model.BadgeID
}

// Processor applies activities to gamification state: it advances the
// streak, awards newly earned badges, adds XP and refreshes the leaderboard.
type Processor struct {
	rules    Rules
	loc      *time.Location
	now      func() time.Time
	progress ProgressStore
	history  HistoryReader
	board    Leaderboard
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRules overrides the XP table.
func WithRules(r Rules) ProcessorOption {
	return func(p *Processor) { p.rules = r }
}

// WithLocation sets the time zone used for streak day boundaries.
func WithLocation(loc *time.Location) ProcessorOption {
	return func(p *Processor) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock sets the source of level-up timestamps.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor creates a Processor. board may be nil.
func NewProcessor(progress ProgressStore, history HistoryReader, board Leaderboard, opts ...ProcessorOption) *Processor {
	p := &Processor{
		rules:    DefaultRules(),
		loc:      time.UTC,
		now:      time.Now,
		progress: progress,
		history:  history,
		board:    board,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rules returns the XP table in use.
func (p *Processor) Rules() Rules { return p.rules }

// Process applies a single activity.
func (p *Processor) Process(ctx context.Context, a model.Activity) (Outcome, error) {
	out := Outcome{UserID: a.UserID}
	day := a.Date
	if day.IsZero() {
		day = model.Day(a.OccurredAt, p.loc)
	}

	streak, err := p.progress.UpdateStreak(ctx, a.UserID, a.Type, func(prev *model.Streak) model.Streak {
		return AdvanceStreak(prev, a.UserID, a.Type, day)
	})
	if err != nil {
		return out, fmt.Errorf("update streak for %s: %w", a.UserID, err)
	}
	out.Streak = streak

	xp := p.rules.ForActivity(a)

	if a.Type == model.ActivityAssessmentReceived {
		history, err := p.history.ListByTrainer(ctx, a.UserID)
		if err != nil {
			return out, fmt.Errorf("load history for %s: %w", a.UserID, err)
		}
		for _, id := range EarnedBadges(history) {
			awarded, err := p.progress.AwardBadge(ctx, model.UserBadge{
				UserID:       a.UserID,
				Badge:        id,
				AssessmentID: a.AssessmentID,
				AwardedAt:    p.now(),
			})
			if err != nil {
				return out, fmt.Errorf("award %s to %s: %w", id, a.UserID, err)
			}
			if awarded {
				out.Badges = append(out.Badges, id)
				xp += p.rules.PerBadge
			}
		}
	}

	var before int
	updated, err := p.progress.UpdateXP(ctx, a.UserID, func(cur model.UserXP) model.UserXP {
		cur.UserID = a.UserID
		before = LevelFor(cur.TotalXP).Level
		return Apply(cur, xp, p.now())
	})
	if err != nil {
		return out, fmt.Errorf("update xp for %s: %w", a.UserID, err)
	}
	out.XPAwarded = xp
	out.XP = updated
	out.LeveledUp = updated.Level > before

	if p.board != nil {
		if err := p.board.UpsertXP(ctx, a.UserID, updated.TotalXP); err != nil {
			return out, fmt.Errorf("update leaderboard for %s: %w", a.UserID, err)
		}
	}
	return out, nil
}
