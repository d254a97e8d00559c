// Package gamification maps experience points to levels, advances activity
// streaks and evaluates achievement badges.
package gamification

import (
	"time"

	"github.com/okian/trainerscope/internal/domain/model"
)

// MaxLevel is the highest reachable level.
const MaxLevel = 6

// Level is one tier of the XP ladder.
type Level struct {
	Number int    `json:"level"`
	Name   string `json:"name"`
	MinXP  int64  `json:"min_xp"`
}

var ladder = [MaxLevel]Level{
	{1, "Novice", 0},
	{2, "Learner", 500},
	{3, "Competent", 1000},
	{4, "Proficient", 2000},
	{5, "Expert", 4000},
	{6, "Master", 8000},
}

// Levels returns the XP ladder, lowest first.
func Levels() []Level {
	out := make([]Level, MaxLevel)
	copy(out, ladder[:])
	return out
}

// LevelInfo describes where a total XP value sits on the ladder.
type LevelInfo struct {
	Level    int     `json:"level"`
	Name     string  `json:"name"`
	TotalXP  int64   `json:"total_xp"`
	LevelXP  int64   `json:"level_xp"`
	XPToNext int64   `json:"xp_to_next"`
	NextAt   int64   `json:"next_level_at,omitempty"`
	Progress float64 `json:"progress"`
}

// LevelFor maps cumulative XP to its level. Negative XP counts as zero. The
// top level reports zero XP to next and full progress.
func LevelFor(totalXP int64) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}
	idx := 0
	for i := MaxLevel - 1; i >= 0; i-- {
		if totalXP >= ladder[i].MinXP {
			idx = i
			break
		}
	}
	cur := ladder[idx]
	info := LevelInfo{
		Level:   cur.Number,
		Name:    cur.Name,
		TotalXP: totalXP,
		LevelXP: totalXP - cur.MinXP,
	}
	if cur.Number == MaxLevel {
		info.Progress = 100
		return info
	}
	next := ladder[idx+1]
	span := next.MinXP - cur.MinXP
	info.NextAt = next.MinXP
	info.XPToNext = next.MinXP - totalXP
	info.Progress = float64(int64(float64(info.LevelXP)/float64(span)*10000)) / 100
	return info
}

// Apply returns xp with total, level and level-up time recomputed after
// adding delta. LevelUpAt is stamped with at only when the level rises.
func Apply(xp model.UserXP, delta int64, at time.Time) model.UserXP {
	if delta < 0 {
		delta = 0
	}
	before := LevelFor(xp.TotalXP).Level
	xp.TotalXP += delta
	info := LevelFor(xp.TotalXP)
	xp.Level = info.Level
	xp.LevelXP = info.LevelXP
	if info.Level > before {
		ts := at
		xp.LevelUpAt = &ts
	}
	xp.UpdatedAt = at
	return xp
}
