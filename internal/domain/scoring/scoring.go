// Package scoring reduces assessment records into parameter, category and
// overall averages. Ratings of zero mean "not rated" and are excluded from
// both the sum and the divisor of every average.
package scoring

import (
	"math"

	"github.com/okian/trainerscope/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// ParameterAverage is the mean rating of one parameter over a set of records.
type ParameterAverage struct {
	Parameter model.ParameterID `json:"-"`
	Key       string            `json:"parameter"`
	Label     string            `json:"label"`
	Average   float64           `json:"average"`
	Count     int               `json:"count"`
}

// CategoryAverage is the mean rating of one category's parameters.
type CategoryAverage struct {
	Category model.Category `json:"-"`
	Key      string         `json:"category"`
	Label    string         `json:"label"`
	Average  float64        `json:"average"`
	Count    int            `json:"count"`
}

// Summary bundles every aggregate for a set of records.
type Summary struct {
	Assessments int                `json:"assessments"`
	Overall     float64            `json:"overall_average"`
	Ratings     int                `json:"ratings"`
	Parameters  []ParameterAverage `json:"parameters"`
	Categories  []CategoryAverage  `json:"categories"`
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// mean returns the arithmetic mean of xs, or 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// rated collects the ratings above zero for the given parameters.
func rated(a *model.Assessment, params []model.ParameterID, into []float64) []float64 {
	for _, p := range params {
		if v := a.Ratings.Get(p); v > 0 {
			into = append(into, float64(v))
		}
	}
	return into
}

// RecordAverage is the mean of the rated parameters of a, rounded to two
// decimals. It is 0 when nothing is rated.
func RecordAverage(a *model.Assessment) float64 {
	vals := make([]float64, 0, model.NumParameters)
	for _, v := range a.Ratings {
		if v > 0 {
			vals = append(vals, float64(v))
		}
	}
	return Round2(mean(vals))
}

// RecordCategoryAverage is the mean of the rated parameters of a within c, and the
// number of contributing ratings.
func RecordCategoryAverage(a *model.Assessment, c model.Category) (float64, int) {
	vals := rated(a, c.Parameters(), nil)
	return Round2(mean(vals)), len(vals)
}

// ParameterAverages returns one entry per parameter in schema order.
func ParameterAverages(records []model.Assessment) []ParameterAverage {
	var sums [model.NumParameters]float64
	var counts [model.NumParameters]int
	for i := range records {
		for p, v := range records[i].Ratings {
			if v > 0 {
				sums[p] += float64(v)
				counts[p]++
			}
		}
	}

	out := make([]ParameterAverage, 0, model.NumParameters)
	for _, p := range model.Parameters() {
		avg := 0.0
		if counts[p] > 0 {
			avg = Round2(sums[p] / float64(counts[p]))
		}
		out = append(out, ParameterAverage{
			Parameter: p,
			Key:       p.Key(),
			Label:     p.Label(),
			Average:   avg,
			Count:     counts[p],
		})
	}
	return out
}

// CategoryAverages returns one entry per category in schema order.
func CategoryAverages(records []model.Assessment) []CategoryAverage {
	out := make([]CategoryAverage, 0, model.NumCategories)
	for _, c := range model.Categories() {
		params := c.Parameters()
		var vals []float64
		for i := range records {
			vals = rated(&records[i], params, vals)
		}
		out = append(out, CategoryAverage{
			Category: c,
			Key:      c.Key(),
			Label:    c.Label(),
			Average:  Round2(mean(vals)),
			Count:    len(vals),
		})
	}
	return out
}

// OverallAverage pools every rated parameter across records. It also returns
// the number of contributing ratings.
func OverallAverage(records []model.Assessment) (float64, int) {
	var vals []float64
	all := model.Parameters()
	for i := range records {
		vals = rated(&records[i], all, vals)
	}
	return Round2(mean(vals)), len(vals)
}

// Summarize computes every aggregate for records.
func Summarize(records []model.Assessment) Summary {
	overall, n := OverallAverage(records)
	return Summary{
		Assessments: len(records),
		Overall:     overall,
		Ratings:     n,
		Parameters:  ParameterAverages(records),
		Categories:  CategoryAverages(records),
	}
}
