package correlation

import (
	"errors"
	"fmt"

	"github.com/okian/trainerscope/internal/domain/model"
	"github.com/okian/trainerscope/internal/domain/scoring"
)

// ErrUnknownSet is returned for a variable set name that is not supported.
var ErrUnknownSet = errors.New("unknown variable set")

// VariableSet selects which variables a matrix covers.
type VariableSet string

// Supported variable sets.
const (
	SetLegacy     VariableSet = "legacy"
	SetParameters VariableSet = "parameters"
	SetCategories VariableSet = "categories"
)

// Variable extracts one numeric series from assessments. The boolean is
// false when the record has no value for it.
type Variable struct {
	Key   string
	Label string
	value func(*model.Assessment) (float64, bool)
}

func parameterVariable(p model.ParameterID) Variable {
	return Variable{
		Key:   p.Key(),
		Label: p.Label(),
		value: func(a *model.Assessment) (float64, bool) {
			v := a.Ratings.Get(p)
			return float64(v), v > 0
		},
	}
}

func categoryVariable(c model.Category) Variable {
	return Variable{
		Key:   c.Key(),
		Label: c.Label(),
		value: func(a *model.Assessment) (float64, bool) {
			avg, n := scoring.RecordCategoryAverage(a, c)
			return avg, n > 0
		},
	}
}

// ParseSet resolves a set name. The empty string selects the legacy set.
func ParseSet(name string) (VariableSet, error) {
	switch VariableSet(name) {
	case "", SetLegacy:
		return SetLegacy, nil
	case SetParameters, SetCategories:
		return VariableSet(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSet, name)
	}
}

// Variables lists the variables of set in schema order.
func Variables(set VariableSet) ([]Variable, error) {
	switch set {
	case SetLegacy:
		out := make([]Variable, 0, len(model.LegacyParameters))
		for _, p := range model.LegacyParameters {
			out = append(out, parameterVariable(p))
		}
		return out, nil
	case SetParameters:
		out := make([]Variable, 0, model.NumParameters)
		for _, p := range model.Parameters() {
			out = append(out, parameterVariable(p))
		}
		return out, nil
	case SetCategories:
		out := make([]Variable, 0, model.NumCategories)
		for _, c := range model.Categories() {
			out = append(out, categoryVariable(c))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSet, set)
	}
}
