package trend

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/internal/domain/scoring"
	"gonum.org/v1/gonum/stat"
)

// Detection thresholds.
const (
	directionWindow      = 3
	directionSpreadHigh  = 1.0
	inconsistentMinimum  = 5
	historyWindow        = 10
	inconsistentStdDev   = 0.8
	inconsistentHigh     = 1.0
	skillGapMinimum      = 3
	skillGapMean         = 2.5
	skillGapPointCeiling = 3.0
	skillGapHigh         = 2.0
	inactivityMedium     = 30
	inactivityHigh       = 60
	monthlyDropThreshold = 0.10
	platformWindow       = 50
	platformMinRatings   = 10
	platformCategoryMin  = 3.0
	monthLayout          = "2006-01"
)

// Detector runs the trend rules. It holds no mutable state and is safe for
// concurrent use.
type Detector struct {
	loc *time.Location
}

// Option configures a Detector.
type Option func(*Detector)

// WithLocation sets the time zone in which now falls on a calendar day.
// Assessment dates are calendar dates and are never converted.
func WithLocation(loc *time.Location) Option {
	return func(d *Detector) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{loc: time.UTC}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func points(records []model.Assessment) []ScorePoint {
	out := make([]ScorePoint, len(records))
	for i := range records {
		out[i] = ScorePoint{
			AssessmentID: records[i].ID,
			Date:         records[i].Date,
			Score:        scoring.RecordAverage(&records[i]),
		}
	}
	return out
}

func chronological(pts []ScorePoint) []ScorePoint {
	out := make([]ScorePoint, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func period(pts []ScorePoint) (*time.Time, *time.Time) {
	if len(pts) == 0 {
		return nil, nil
	}
	start, end := pts[0].Date, pts[0].Date
	for _, p := range pts[1:] {
		if p.Date.Before(start) {
			start = p.Date
		}
		if p.Date.After(end) {
			end = p.Date
		}
	}
	return &start, &end
}

// moments returns the rounded population mean and standard deviation of the
// scores in pts.
func moments(pts []ScorePoint) (float64, float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	scores := make([]float64, len(pts))
	for i, p := range pts {
		scores[i] = p.Score
	}
	mean, std := stat.PopMeanStdDev(scores, nil)
	return scoring.Round2(mean), scoring.Round2(std)
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

// Trainer runs every trainer-scoped rule over history. The slice may be in
// any order; it is not modified.
func (d *Detector) Trainer(trainerID string, history []model.Assessment, now time.Time) []Alert {
	sorted := model.NewestFirst(history)
	var alerts []Alert
	if a, ok := d.declining(trainerID, sorted, now); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.improving(trainerID, sorted, now); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.inconsistent(trainerID, sorted, now); ok {
		alerts = append(alerts, a)
	}
	alerts = append(alerts, d.skillGaps(trainerID, sorted, now)...)
	return alerts
}

// Declining reports a strict decrease across the three most recent scores.
func (d *Detector) Declining(trainerID string, history []model.Assessment, now time.Time) (Alert, bool) {
	return d.declining(trainerID, model.NewestFirst(history), now)
}

// Improving reports a strict increase across the three most recent scores.
func (d *Detector) Improving(trainerID string, history []model.Assessment, now time.Time) (Alert, bool) {
	return d.improving(trainerID, model.NewestFirst(history), now)
}

// Inconsistent reports a high spread among the ten most recent scores.
func (d *Detector) Inconsistent(trainerID string, history []model.Assessment, now time.Time) (Alert, bool) {
	return d.inconsistent(trainerID, model.NewestFirst(history), now)
}

// SkillGaps reports every category that is persistently weak.
func (d *Detector) SkillGaps(trainerID string, history []model.Assessment, now time.Time) []Alert {
	return d.skillGaps(trainerID, model.NewestFirst(history), now)
}

func (d *Detector) window(sorted []model.Assessment) []ScorePoint {
	return chronological(points(sorted[:directionWindow]))
}

func (d *Detector) declining(trainerID string, sorted []model.Assessment, now time.Time) (Alert, bool) {
	if len(sorted) < directionWindow {
		return Alert{}, false
	}
	pts := d.window(sorted)
	for i := 1; i < len(pts); i++ {
		if pts[i].Score >= pts[i-1].Score {
			return Alert{}, false
		}
	}
	first, last := pts[0].Score, pts[len(pts)-1].Score
	spread := scoring.Round2(first - last)
	severity := SeverityMedium
	if spread > directionSpreadHigh {
		severity = SeverityHigh
	}
	mean, std := moments(pts)
	start, end := period(pts)
	return Alert{
		ID:        alertID(TypeDeclining, now, trainerID),
		Type:      TypeDeclining,
		Severity:  severity,
		Message:   fmt.Sprintf("Scores declined over the last %d assessments (%.2f to %.2f)", len(pts), first, last),
		TrainerID: trainerID,
		Data: Data{
			Scores:      pts,
			Mean:        mean,
			StdDev:      std,
			Change:      spread,
			Min:         last,
			Max:         first,
			PeriodStart: start,
			PeriodEnd:   end,
		},
		CreatedAt: now,
	}, true
}

func (d *Detector) improving(trainerID string, sorted []model.Assessment, now time.Time) (Alert, bool) {
	if len(sorted) < directionWindow {
		return Alert{}, false
	}
	pts := d.window(sorted)
	for i := 1; i < len(pts); i++ {
		if pts[i].Score <= pts[i-1].Score {
			return Alert{}, false
		}
	}
	first, last := pts[0].Score, pts[len(pts)-1].Score
	mean, std := moments(pts)
	start, end := period(pts)
	return Alert{
		ID:        alertID(TypeImproving, now, trainerID),
		Type:      TypeImproving,
		Severity:  SeverityLow,
		Message:   fmt.Sprintf("Scores improved over the last %d assessments (%.2f to %.2f)", len(pts), first, last),
		TrainerID: trainerID,
		Data: Data{
			Scores:      pts,
			Mean:        mean,
			StdDev:      std,
			Change:      scoring.Round2(last - first),
			Min:         first,
			Max:         last,
			PeriodStart: start,
			PeriodEnd:   end,
		},
		CreatedAt: now,
	}, true
}

func (d *Detector) inconsistent(trainerID string, sorted []model.Assessment, now time.Time) (Alert, bool) {
	if len(sorted) < inconsistentMinimum {
		return Alert{}, false
	}
	recent := sorted
	if len(recent) > historyWindow {
		recent = recent[:historyWindow]
	}
	pts := chronological(points(recent))
	scores := make([]float64, len(pts))
	for i, p := range pts {
		scores[i] = p.Score
	}
	mean, std := stat.PopMeanStdDev(scores, nil)
	if std <= inconsistentStdDev {
		return Alert{}, false
	}
	severity := SeverityMedium
	if std > inconsistentHigh {
		severity = SeverityHigh
	}
	lo, hi := minMax(scores)
	start, end := period(pts)
	return Alert{
		ID:        alertID(TypeInconsistent, now, trainerID),
		Type:      TypeInconsistent,
		Severity:  severity,
		Message:   fmt.Sprintf("Scores vary widely across the last %d assessments (std dev %.2f)", len(pts), std),
		TrainerID: trainerID,
		Data: Data{
			Scores:      pts,
			Mean:        scoring.Round2(mean),
			StdDev:      scoring.Round2(std),
			Min:         lo,
			Max:         hi,
			PeriodStart: start,
			PeriodEnd:   end,
		},
		CreatedAt: now,
	}, true
}

func (d *Detector) skillGaps(trainerID string, sorted []model.Assessment, now time.Time) []Alert {
	if len(sorted) < skillGapMinimum {
		return nil
	}
	recent := sorted
	if len(recent) > historyWindow {
		recent = recent[:historyWindow]
	}

	var alerts []Alert
	for _, c := range model.Categories() {
		var pts []ScorePoint
		allLow := true
		for i := len(recent) - 1; i >= 0; i-- {
			avg, n := scoring.RecordCategoryAverage(&recent[i], c)
			if n == 0 {
				continue
			}
			pts = append(pts, ScorePoint{AssessmentID: recent[i].ID, Date: recent[i].Date, Score: avg})
			if avg >= skillGapPointCeiling {
				allLow = false
			}
		}
		if len(pts) == 0 {
			continue
		}
		vals := make([]float64, len(pts))
		for i, p := range pts {
			vals[i] = p.Score
		}
		mean := scoring.Round2(stat.Mean(vals, nil))
		if mean >= skillGapMean && !allLow {
			continue
		}
		severity := SeverityMedium
		if mean < skillGapHigh {
			severity = SeverityHigh
		}
		_, std := moments(pts)
		lo, hi := minMax(vals)
		start, end := period(pts)
		alerts = append(alerts, Alert{
			ID:        alertID(TypeSkillGap, now, trainerID, c.Key()),
			Type:      TypeSkillGap,
			Severity:  severity,
			Message:   fmt.Sprintf("%s is a persistent weak area (average %.2f)", c.Label(), mean),
			TrainerID: trainerID,
			Data: Data{
				Scores:      pts,
				Mean:        mean,
				StdDev:      std,
				Min:         lo,
				Max:         hi,
				Category:    c.Key(),
				PeriodStart: start,
				PeriodEnd:   end,
			},
			CreatedAt: now,
		})
	}
	return alerts
}

// Inactivity reports a manager who has not assessed anyone recently. A nil
// last means the manager has never submitted an assessment.
func (d *Detector) Inactivity(managerID string, last *time.Time, now time.Time) (Alert, bool) {
	if last == nil {
		return Alert{
			ID:        alertID(TypeInactivity, now, managerID, "never"),
			Type:      TypeInactivity,
			Severity:  SeverityMedium,
			Message:   "Manager has never submitted an assessment",
			ManagerID: managerID,
			CreatedAt: now,
		}, true
	}
	days := model.DaysBetween(*last, model.Day(now, d.loc))
	if days <= inactivityMedium {
		return Alert{}, false
	}
	severity := SeverityMedium
	if days > inactivityHigh {
		severity = SeverityHigh
	}
	lastDay := *last
	return Alert{
		ID:        alertID(TypeInactivity, now, managerID),
		Type:      TypeInactivity,
		Severity:  severity,
		Message:   fmt.Sprintf("No assessments submitted in %d days", days),
		ManagerID: managerID,
		Data: Data{
			DaysSince:   days,
			PeriodStart: &lastDay,
			PeriodEnd:   &now,
		},
		CreatedAt: now,
	}, true
}

// Platform runs the platform-wide rules over every assessment.
func (d *Detector) Platform(records []model.Assessment, now time.Time) []Alert {
	sorted := model.NewestFirst(records)
	var alerts []Alert
	if a, ok := d.monthlyDrop(sorted, now); ok {
		alerts = append(alerts, a)
	}
	return append(alerts, d.weakCategories(sorted, now)...)
}

func (d *Detector) monthlyDrop(sorted []model.Assessment, now time.Time) (Alert, bool) {
	byMonth := make(map[string][]float64)
	for i := range sorted {
		if sorted[i].Ratings.RatedCount() == 0 {
			continue
		}
		key := model.Date(sorted[i].Date).Format(monthLayout)
		byMonth[key] = append(byMonth[key], scoring.RecordAverage(&sorted[i]))
	}
	if len(byMonth) < 2 {
		return Alert{}, false
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	prevKey, currKey := months[len(months)-2], months[len(months)-1]
	prev := stat.Mean(byMonth[prevKey], nil)
	curr := stat.Mean(byMonth[currKey], nil)
	if prev <= 0 {
		return Alert{}, false
	}
	drop := (prev - curr) / prev
	if drop <= monthlyDropThreshold {
		return Alert{}, false
	}
	return Alert{
		ID:       alertID(TypeDeclining, now, "platform", prevKey, currKey),
		Type:     TypeDeclining,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("Platform average fell %.1f%% from %s to %s",
			drop*100, prevKey, currKey),
		Data: Data{
			PrevMonth:    prevKey,
			CurrentMonth: currKey,
			PrevMean:     scoring.Round2(prev),
			Mean:         scoring.Round2(curr),
			DropPercent:  scoring.Round2(drop * 100),
		},
		CreatedAt: now,
	}, true
}

func (d *Detector) weakCategories(sorted []model.Assessment, now time.Time) []Alert {
	recent := sorted
	if len(recent) > platformWindow {
		recent = recent[:platformWindow]
	}
	var alerts []Alert
	for _, c := range model.Categories() {
		params := c.Parameters()
		var vals []float64
		for i := range recent {
			for _, p := range params {
				if v := recent[i].Ratings.Get(p); v > 0 {
					vals = append(vals, float64(v))
				}
			}
		}
		if len(vals) < platformMinRatings {
			continue
		}
		mean := scoring.Round2(stat.Mean(vals, nil))
		if mean >= platformCategoryMin {
			continue
		}
		alerts = append(alerts, Alert{
			ID:       alertID(TypeSkillGap, now, "platform", c.Key()),
			Type:     TypeSkillGap,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%s averages %.2f across the last %d assessments", c.Label(), mean, len(recent)),
			Data: Data{
				Mean:     mean,
				Category: c.Key(),
				Ratings:  len(vals),
			},
			CreatedAt: now,
		})
	}
	return alerts
}
