package seed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/trainerscope/internal/domain/model"
)

// Constants for rating generation.
const (
	baselineMin   = 2.2
	baselineRange = 2.2
	driftPerMonth = 0.8
	noiseStdDev   = 0.45
	weakOffset    = 1.2
	weakPerRater  = 2
	skipChance    = 0.15
	daysPerMonth  = 30.0
)

// idNamespace seeds name-based assessment ids so equal seeds give equal ids.
var idNamespace = uuid.MustParse("9d1c56f4-7a0e-4c1b-8f6a-3b2e5d7c9a10")

// Assessment is the POST /assessments body.
type Assessment struct {
	ID              string         `json:"id"`
	TrainerID       string         `json:"trainer_id"`
	AssessorID      string         `json:"assessor_id"`
	AssessmentDate  string         `json:"assessment_date"`
	Ratings         map[string]int `json:"ratings"`
	OverallComments string         `json:"overall_comments,omitempty"`
}

// profile shapes how one trainer is rated over time.
type profile struct {
	baseline float64
	drift    float64
	weak     map[model.ParameterID]bool
}

// TrainerID names the i-th synthetic trainer.
func TrainerID(i int) string { return fmt.Sprintf("trainer-%03d", i+1) }

// ManagerID names the i-th synthetic manager.
func ManagerID(i int) string { return fmt.Sprintf("manager-%02d", i+1) }

// Generate builds cfg.Count assessments. The output depends only on cfg.
func Generate(cfg *Config) []Assessment {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed)) //nolint:gosec // synthetic data
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := model.Day(now, time.UTC)
	params := model.Parameters()

	profiles := make([]profile, cfg.Trainers)
	for i := range profiles {
		p := profile{
			baseline: baselineMin + rng.Float64()*baselineRange,
			drift:    float64(rng.IntN(3)-1) * driftPerMonth,
			weak:     make(map[model.ParameterID]bool, weakPerRater),
		}
		for len(p.weak) < weakPerRater && len(p.weak) < len(params) {
			p.weak[params[rng.IntN(len(params))]] = true
		}
		profiles[i] = p
	}

	out := make([]Assessment, cfg.Count)
	for i := range out {
		trainer := rng.IntN(cfg.Trainers)
		daysAgo := rng.IntN(cfg.Days)
		prof := profiles[trainer]
		elapsed := float64(cfg.Days-daysAgo) / daysPerMonth

		ratings := make(map[string]int, len(params))
		for _, p := range params {
			if rng.Float64() < skipChance {
				continue
			}
			v := prof.baseline + prof.drift*elapsed + rng.NormFloat64()*noiseStdDev
			if prof.weak[p] {
				v -= weakOffset
			}
			ratings[p.Key()] = clampRating(v)
		}

		out[i] = Assessment{
			ID:             uuid.NewSHA1(idNamespace, fmt.Appendf(nil, "%d/%d", cfg.Seed, i)).String(),
			TrainerID:      TrainerID(trainer),
			AssessorID:     ManagerID(rng.IntN(cfg.Managers)),
			AssessmentDate: today.AddDate(0, 0, -daysAgo).Format(model.DateLayout),
			Ratings:        ratings,
		}
	}
	return out
}

func clampRating(v float64) int {
	r := int(math.Round(v))
	switch {
	case r < model.MinRating+1:
		return model.MinRating + 1
	case r > model.MaxRating:
		return model.MaxRating
	default:
		return r
	}
}
