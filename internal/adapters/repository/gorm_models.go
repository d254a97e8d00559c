package repository

import (
	"time"

	"github.com/okian/trainerscope/internal/domain/model"
	"gorm.io/datatypes"
)

// assessmentRow is the relational shape of an assessment: one nullable
// column per parameter, NULL meaning not rated.
type assessmentRow struct {
	ID             string    `gorm:"primaryKey;size:64"`
	TrainerID      string    `gorm:"size:64;not null;index"`
	AssessorID     string    `gorm:"size:64;not null;index"`
	AssessmentDate time.Time `gorm:"not null;index"`

	ContentPreparation    *int
	LogisticsReadiness    *int
	Punctuality           *int
	SessionSetup          *int
	DomainExpertise       *int
	ContentDelivery       *int
	Pacing                *int
	UseOfExamples         *int
	HandlingQuestions     *int
	ParticipantEngagement *int
	Interactivity         *int
	EnergyEnthusiasm      *int
	Inclusivity           *int
	Clarity               *int
	ActiveListening       *int
	FeedbackQuality       *int
	Professionalism       *int
	TechnicalKnowledge    *int
	ToolProficiency       *int
	Troubleshooting       *int
	HandsOnGuidance       *int

	Comments        datatypes.JSONMap
	OverallComments string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (assessmentRow) TableName() string { return "assessments" }

// ratingColumns maps each parameter to its column field.
var ratingColumns = [model.NumParameters]func(*assessmentRow) **int{
	model.ContentPreparation:    func(r *assessmentRow) **int { return &r.ContentPreparation },
	model.LogisticsReadiness:    func(r *assessmentRow) **int { return &r.LogisticsReadiness },
	model.Punctuality:           func(r *assessmentRow) **int { return &r.Punctuality },
	model.SessionSetup:          func(r *assessmentRow) **int { return &r.SessionSetup },
	model.DomainExpertise:       func(r *assessmentRow) **int { return &r.DomainExpertise },
	model.ContentDelivery:       func(r *assessmentRow) **int { return &r.ContentDelivery },
	model.Pacing:                func(r *assessmentRow) **int { return &r.Pacing },
	model.UseOfExamples:         func(r *assessmentRow) **int { return &r.UseOfExamples },
	model.HandlingQuestions:     func(r *assessmentRow) **int { return &r.HandlingQuestions },
	model.ParticipantEngagement: func(r *assessmentRow) **int { return &r.ParticipantEngagement },
	model.Interactivity:         func(r *assessmentRow) **int { return &r.Interactivity },
	model.EnergyEnthusiasm:      func(r *assessmentRow) **int { return &r.EnergyEnthusiasm },
	model.Inclusivity:           func(r *assessmentRow) **int { return &r.Inclusivity },
	model.Clarity:               func(r *assessmentRow) **int { return &r.Clarity },
	model.ActiveListening:       func(r *assessmentRow) **int { return &r.ActiveListening },
	model.FeedbackQuality:       func(r *assessmentRow) **int { return &r.FeedbackQuality },
	model.Professionalism:       func(r *assessmentRow) **int { return &r.Professionalism },
	model.TechnicalKnowledge:    func(r *assessmentRow) **int { return &r.TechnicalKnowledge },
	model.ToolProficiency:       func(r *assessmentRow) **int { return &r.ToolProficiency },
	model.Troubleshooting:       func(r *assessmentRow) **int { return &r.Troubleshooting },
	model.HandsOnGuidance:       func(r *assessmentRow) **int { return &r.HandsOnGuidance },
}

func toAssessmentRow(a model.Assessment) assessmentRow {
	row := assessmentRow{
		ID:              a.ID,
		TrainerID:       a.TrainerID,
		AssessorID:      a.AssessorID,
		AssessmentDate:  a.Date,
		OverallComments: a.OverallComments,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	for _, p := range model.Parameters() {
		if v := a.Ratings.Get(p); v > 0 {
			*ratingColumns[p](&row) = &v
		}
	}
	if len(a.Comments) > 0 {
		row.Comments = make(datatypes.JSONMap, len(a.Comments))
		for p, c := range a.Comments {
			row.Comments[p.Key()] = c
		}
	}
	return row
}

func (r *assessmentRow) toModel() model.Assessment {
	a := model.Assessment{
		ID:              r.ID,
		TrainerID:       r.TrainerID,
		AssessorID:      r.AssessorID,
		Date:            r.AssessmentDate.UTC(),
		OverallComments: r.OverallComments,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for _, p := range model.Parameters() {
		if v := *ratingColumns[p](r); v != nil {
			a.Ratings[p] = *v
		}
	}
	for k, v := range r.Comments {
		p, err := model.ParseParameterID(k)
		if err != nil {
			continue
		}
		if s, ok := v.(string); ok {
			if a.Comments == nil {
				a.Comments = make(map[model.ParameterID]string)
			}
			a.Comments[p] = s
		}
	}
	return a
}

type xpRow struct {
	UserID    string     `gorm:"column:user_id;primaryKey;size:64"`
	TotalXP   int64      `gorm:"column:total_xp;not null;default:0;index"`
	Level     int        `gorm:"column:current_level;not null;default:1"`
	LevelXP   int64      `gorm:"column:level_xp;not null;default:0"`
	LevelUpAt *time.Time `gorm:"column:level_up_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (xpRow) TableName() string { return "user_xp" }

func toXPRow(x model.UserXP) xpRow {
	return xpRow{
		UserID:    x.UserID,
		TotalXP:   x.TotalXP,
		Level:     x.Level,
		LevelXP:   x.LevelXP,
		LevelUpAt: x.LevelUpAt,
		UpdatedAt: x.UpdatedAt,
	}
}

func (r *xpRow) toModel() model.UserXP {
	return model.UserXP{
		UserID:    r.UserID,
		TotalXP:   r.TotalXP,
		Level:     r.Level,
		LevelXP:   r.LevelXP,
		LevelUpAt: r.LevelUpAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type streakRow struct {
	UserID       string    `gorm:"column:user_id;primaryKey;size:64"`
	Type         string    `gorm:"column:streak_type;primaryKey;size:32"`
	Current      int       `gorm:"column:current_streak;not null;default:0"`
	Longest      int       `gorm:"column:longest_streak;not null;default:0"`
	LastActivity time.Time `gorm:"column:last_activity_date"`
	StartedAt    time.Time `gorm:"column:streak_start_date"`
}

func (streakRow) TableName() string { return "user_streaks" }

func toStreakRow(s model.Streak) streakRow {
	return streakRow{
		UserID:       s.UserID,
		Type:         string(s.Type),
		Current:      s.Current,
		Longest:      s.Longest,
		LastActivity: s.LastActivity,
		StartedAt:    s.StartedAt,
	}
}

func (r *streakRow) toModel() model.Streak {
	return model.Streak{
		UserID:       r.UserID,
		Type:         model.ActivityType(r.Type),
		Current:      r.Current,
		Longest:      r.Longest,
		LastActivity: r.LastActivity.UTC(),
		StartedAt:    r.StartedAt.UTC(),
	}
}

type badgeRow struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	UserID       string    `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_user_badge,priority:1"`
	Badge        string    `gorm:"column:badge_id;size:64;not null;uniqueIndex:idx_user_badge,priority:2"`
	AssessmentID string    `gorm:"column:assessment_id;size:64"`
	AwardedAt    time.Time `gorm:"column:awarded_at;not null"`
}

func (badgeRow) TableName() string { return "user_badges" }

func (r *badgeRow) toModel() model.UserBadge {
	return model.UserBadge{
		UserID:       r.UserID,
		Badge:        model.BadgeID(r.Badge),
		AssessmentID: r.AssessmentID,
		AwardedAt:    r.AwardedAt,
	}
}
