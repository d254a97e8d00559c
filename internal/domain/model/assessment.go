package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Ratings holds one integer score per parameter, indexed by ParameterID.
// A zero entry means the parameter was not rated.
type Ratings [NumParameters]int

// Get returns the rating of p, or 0 when p is outside the schema.
func (r *Ratings) Get(p ParameterID) int {
	if !p.Valid() {
		return 0
	}
	return r[p]
}

// Set stores v for p after range checking it.
func (r *Ratings) Set(p ParameterID, v int) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownParameter, int(p))
	}
	if v < MinRating || v > MaxRating {
		return fmt.Errorf("%w: %s=%d", ErrRatingOutOfRange, p.Key(), v)
	}
	r[p] = v
	return nil
}

// RatedCount returns how many parameters carry a rating above zero.
func (r *Ratings) RatedCount() int {
	n := 0
	for _, v := range r {
		if v > 0 {
			n++
		}
	}
	return n
}

// Assessment is one manager's evaluation of one trainer on a calendar date.
// Assessments are immutable once stored.
type Assessment struct {
	ID              string
	TrainerID       string
	AssessorID      string
	Date            time.Time // midnight UTC of the assessment day
	Ratings         Ratings
	Comments        map[ParameterID]string
	OverallComments string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks identity fields, the date, and every rating.
func (a *Assessment) Validate() error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return fmt.Errorf("%w: id", ErrMissingField)
	case strings.TrimSpace(a.TrainerID) == "":
		return fmt.Errorf("%w: trainer_id", ErrMissingField)
	case strings.TrimSpace(a.AssessorID) == "":
		return fmt.Errorf("%w: assessor_id", ErrMissingField)
	case a.Date.IsZero():
		return fmt.Errorf("%w: assessment_date", ErrMissingField)
	}
	for i, v := range a.Ratings {
		if v < MinRating || v > MaxRating {
			return fmt.Errorf("%w: %s=%d", ErrRatingOutOfRange, ParameterID(i).Key(), v)
		}
	}
	for p := range a.Comments {
		if !p.Valid() {
			return fmt.Errorf("%w: comment for %d", ErrUnknownParameter, int(p))
		}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC. The result
// is a civil date: its fields are read as is and never converted to a zone.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Date returns the calendar date of t, read in t's own location, as midnight
// UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Day returns the calendar date on which instant t falls in loc, as midnight
// UTC. Use it for timestamps such as now, not for dates from ParseDate.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc))
}

// DaysBetween counts whole calendar days from date a to date b. The result
// is negative when b is earlier than a.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)) / (24 * time.Hour))
}

// NewestFirst returns a copy of records sorted most recent first. Records on
// the same day are ordered by creation time and then id so the order is
// stable for identical input.
func NewestFirst(records []Assessment) []Assessment {
	out := make([]Assessment, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out
}
