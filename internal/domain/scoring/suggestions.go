package scoring

import (
	"sort"

	"github.com/okian/trainerscope/internal/domain/model"
)

// Suggestion thresholds.
const (
	suggestionThreshold = 3.0
	maxSuggestions      = 5
)

// Suggestion is an improvement tip for a weak parameter.
type Suggestion struct {
	Parameter string  `json:"parameter"`
	Label     string  `json:"label"`
	Average   float64 `json:"average"`
	Tip       string  `json:"tip"`
}

var categoryTips = [model.NumCategories]string{
	model.CategoryReadiness:         "Run a pre-session checklist covering materials, room and timing the day before.",
	model.CategoryExpertiseDelivery: "Rehearse the hardest module with a peer and prepare two worked examples per concept.",
	model.CategoryEngagement:        "Add a short activity or poll every 15 minutes and call on quieter participants.",
	model.CategoryCommunication:     "Summarise each section in one sentence and check understanding before moving on.",
	model.CategoryTechnicalAcumen:   "Dry-run the lab environment and keep a fallback plan for common tool failures.",
}

// Suggestions returns canned tips for rated parameters averaging below 3.0,
// weakest first, at most five. It is the offline fallback used when no
// external suggestion service is available.
func Suggestions(averages []ParameterAverage) []Suggestion {
	weak := make([]ParameterAverage, 0, len(averages))
	for _, pa := range averages {
		if pa.Count > 0 && pa.Average < suggestionThreshold {
			weak = append(weak, pa)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		if weak[i].Average != weak[j].Average {
			return weak[i].Average < weak[j].Average
		}
		return weak[i].Parameter < weak[j].Parameter
	})
	if len(weak) > maxSuggestions {
		weak = weak[:maxSuggestions]
	}

	out := make([]Suggestion, 0, len(weak))
	for _, pa := range weak {
		out = append(out, Suggestion{
			Parameter: pa.Key,
			Label:     pa.Label,
			Average:   pa.Average,
			Tip:       categoryTips[pa.Parameter.Category()],
		})
	}
	return out
}
