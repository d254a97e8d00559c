// Package correlation computes pairwise Pearson correlations between
// assessment variables and turns the strongest relationships into insights.
package correlation

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/trainerscope/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Classification thresholds.
const (
	strongThreshold   = 0.7
	moderateThreshold = 0.5
	weakThreshold     = 0.3
	highSampleSize    = 30
	mediumSampleSize  = 20
	maxInsights       = 10
)

// Significance grades how much a coefficient can be trusted.
type Significance string

// Significance levels.
const (
	SignificanceHigh   Significance = "high"
	SignificanceMedium Significance = "medium"
	SignificanceLow    Significance = "low"
)

// Result describes the relationship between two variables.
type Result struct {
	Variable1      string       `json:"variable1"`
	Variable2      string       `json:"variable2"`
	Correlation    float64      `json:"correlation"`
	RSquared       float64      `json:"r_squared"`
	Significance   Significance `json:"significance"`
	SampleSize     int          `json:"sample_size"`
	Interpretation string       `json:"interpretation"`
	Insight        string       `json:"insight,omitempty"`
}

// Matrix is a symmetric correlation matrix over a variable set. Values[i][i]
// is always 1.
type Matrix struct {
	Set         VariableSet `json:"set"`
	Variables   []string    `json:"variables"`
	Labels      []string    `json:"labels"`
	Values      [][]float64 `json:"values"`
	SampleSizes [][]int     `json:"sample_sizes"`
	Pairs       []Result    `json:"pairs"`
	Insights    []Result    `json:"insights"`
}

// Pearson returns the linear correlation of xs and ys. It returns 0 for
// empty or mismatched input and for constant series, never NaN.
func Pearson(xs, ys []float64) float64 {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// Classify grades r by magnitude and sample size.
func Classify(r float64, n int) Significance {
	abs := math.Abs(r)
	switch {
	case abs >= strongThreshold && n >= highSampleSize:
		return SignificanceHigh
	case abs >= moderateThreshold && n >= mediumSampleSize:
		return SignificanceMedium
	default:
		return SignificanceLow
	}
}

// Interpret names the strength tier of r.
func Interpret(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs >= strongThreshold:
		return "strong"
	case abs >= moderateThreshold:
		return "moderate"
	case abs >= weakThreshold:
		return "weak"
	default:
		return "negligible"
	}
}

func direction(r float64) string {
	if r < 0 {
		return "negative"
	}
	return "positive"
}

func insight(v1, v2 string, r float64, n int) string {
	return fmt.Sprintf("%s %s correlation between %s and %s (r = %.2f): %.0f%% of variance explained across %d assessments",
		capitalize(Interpret(r)), direction(r), v1, v2, r, math.Abs(r)*100, n)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// aligned collects the rows where both variables have a value.
func aligned(rows [][]float64, present [][]bool, i, j int) ([]float64, []float64) {
	var xs, ys []float64
	for k := range rows {
		if present[k][i] && present[k][j] {
			xs = append(xs, rows[k][i])
			ys = append(ys, rows[k][j])
		}
	}
	return xs, ys
}

// Analyze builds the correlation matrix for set over records.
func Analyze(records []model.Assessment, set VariableSet) (Matrix, error) {
	vars, err := Variables(set)
	if err != nil {
		return Matrix{}, err
	}

	rows := make([][]float64, len(records))
	present := make([][]bool, len(records))
	for k := range records {
		rows[k] = make([]float64, len(vars))
		present[k] = make([]bool, len(vars))
		for i, v := range vars {
			rows[k][i], present[k][i] = v.value(&records[k])
		}
	}

	m := Matrix{
		Set:         set,
		Variables:   make([]string, len(vars)),
		Labels:      make([]string, len(vars)),
		Values:      make([][]float64, len(vars)),
		SampleSizes: make([][]int, len(vars)),
	}
	for i, v := range vars {
		m.Variables[i] = v.Key
		m.Labels[i] = v.Label
		m.Values[i] = make([]float64, len(vars))
		m.SampleSizes[i] = make([]int, len(vars))
	}

	for i := range vars {
		xs, _ := aligned(rows, present, i, i)
		m.Values[i][i] = 1
		m.SampleSizes[i][i] = len(xs)
		for j := i + 1; j < len(vars); j++ {
			xs, ys := aligned(rows, present, i, j)
			r := Pearson(xs, ys)
			n := len(xs)
			m.Values[i][j], m.Values[j][i] = r, r
			m.SampleSizes[i][j], m.SampleSizes[j][i] = n, n

			res := Result{
				Variable1:      vars[i].Key,
				Variable2:      vars[j].Key,
				Correlation:    r,
				RSquared:       r * r,
				Significance:   Classify(r, n),
				SampleSize:     n,
				Interpretation: Interpret(r),
			}
			if math.Abs(r) > weakThreshold {
				res.Insight = insight(vars[i].Label, vars[j].Label, r, n)
			}
			m.Pairs = append(m.Pairs, res)
		}
	}

	m.Insights = TopInsights(m.Pairs, maxInsights)
	return m, nil
}

// TopInsights keeps pairs with |r| above the weak threshold, strongest first,
// at most limit of them.
func TopInsights(pairs []Result, limit int) []Result {
	out := make([]Result, 0, len(pairs))
	for _, p := range pairs {
		if math.Abs(p.Correlation) > weakThreshold {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Correlation) > math.Abs(out[j].Correlation)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
