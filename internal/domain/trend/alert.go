// Package trend classifies assessment histories into qualitative patterns:
// declining, improving, inconsistent, skill gaps and inactivity.
package trend

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlertType names a detected pattern.
type AlertType string

// Alert types.
const (
	TypeDeclining    AlertType = "declining"
	TypeImproving    AlertType = "improving"
	TypeInconsistent AlertType = "inconsistent"
	TypeSkillGap     AlertType = "skill_gap"
	TypeInactivity   AlertType = "inactivity"
)

// Severity grades how actionable an alert is.
type Severity string

// Severities.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ScorePoint is one overall score with the date it was given.
type ScorePoint struct {
	AssessmentID string    `json:"assessment_id"`
	Date         time.Time `json:"date"`
	Score        float64   `json:"score"`
}

// Data carries the raw numbers behind an alert so a consumer can render a
// drill-down without recomputing anything.
type Data struct {
	Scores       []ScorePoint `json:"scores,omitempty"`
	Mean         float64      `json:"mean,omitempty"`
	StdDev       float64      `json:"std_dev,omitempty"`
	Min          float64      `json:"min,omitempty"`
	Max          float64      `json:"max,omitempty"`
	Change       float64      `json:"change,omitempty"`
	Category     string       `json:"category,omitempty"`
	Ratings      int          `json:"ratings,omitempty"`
	DaysSince    int          `json:"days_since,omitempty"`
	PeriodStart  *time.Time   `json:"period_start,omitempty"`
	PeriodEnd    *time.Time   `json:"period_end,omitempty"`
	PrevMonth    string       `json:"previous_month,omitempty"`
	CurrentMonth string       `json:"current_month,omitempty"`
	PrevMean     float64      `json:"previous_mean,omitempty"`
	DropPercent  float64      `json:"drop_percent,omitempty"`
}

// Alert is a derived, ephemeral classification of a score sequence.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	TrainerID string    `json:"trainer_id,omitempty"`
	ManagerID string    `json:"manager_id,omitempty"`
	Data      Data      `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// alertNamespace seeds name-based alert ids so identical inputs yield
// identical ids.
var alertNamespace = uuid.MustParse("5b0f3c86-2f43-4a57-9d0c-6e1f1d1f4a21")

func alertID(t AlertType, now time.Time, parts ...string) string {
	name := string(t) + "|" + now.UTC().Format(time.RFC3339) + "|" + strings.Join(parts, "|")
	return uuid.NewSHA1(alertNamespace, []byte(name)).String()
}
