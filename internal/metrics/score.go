package metrics

import (
	"fmt"
	"math"
)

// PerformanceThreshold is the score at or above which a domain is considered on track.
const PerformanceThreshold = 50.0

const weightTolerance = 0.001

// Weights sets the contribution of each component to the performance score.
// The weights must sum to 1.0.
type Weights struct {
	Budget   float64 `json:"budget" yaml:"budget"`
	Activity float64 `json:"activity" yaml:"activity"`
	Output   float64 `json:"output" yaml:"output"`
}

// DefaultWeights returns the standard 0.3 / 0.3 / 0.4 split.
func DefaultWeights() Weights {
	return Weights{Budget: 0.3, Activity: 0.3, Output: 0.4}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Budget + w.Activity + w.Output
}

// Validate checks that no weight is negative and that they sum to 1.0.
func (w Weights) Validate() error {
	if w.Budget < 0 || w.Activity < 0 || w.Output < 0 {
		return fmt.Errorf("%w: negative score weight in %+v", ErrInvalidArgument, w)
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("%w: score weights sum to %.4f, must sum to 1.0", ErrInvalidArgument, w.Sum())
	}
	return nil
}

// Combine applies the weights to the three component scores.
func (w Weights) Combine(budget, activity, output float64) float64 {
	return budget*w.Budget + activity*w.Activity + output*w.Output
}

type domainTally struct {
	budget float64
	active int
	total  int
	output int64
}

// ScoreDomains scores every domain in records with the default weights.
func ScoreDomains(records []ProjectRecord) []DomainPerformance {
	return scoreDomains(records, DefaultWeights())
}

// ScoreDomainsWith scores every domain in records with custom weights.
func ScoreDomainsWith(records []ProjectRecord, w Weights) ([]DomainPerformance, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return scoreDomains(records, w), nil
}

func scoreDomains(records []ProjectRecord, w Weights) []DomainPerformance {
	var (
		order       []string
		tallies     = make(map[string]*domainTally)
		totalBudget float64
		totalOutput int64
	)

	for _, rec := range records {
		if rec.Domain == "" {
			continue
		}
		t, ok := tallies[rec.Domain]
		if !ok {
			t = &domainTally{}
			tallies[rec.Domain] = t
			order = append(order, rec.Domain)
		}
		output := rec.Outputs().Total()
		t.budget += rec.Budget()
		t.output += output
		t.total++
		if rec.Active() {
			t.active++
		}
		totalBudget += rec.Budget()
		totalOutput += output
	}

	scores := make([]DomainPerformance, 0, len(order))
	for _, domain := range order {
		t := tallies[domain]

		var budgetScore, activityScore, outputScore float64
		if totalBudget != 0 {
			budgetScore = t.budget / totalBudget * 100
		}
		if t.total > 0 {
			activityScore = float64(t.active) / float64(t.total) * 100
		}
		if t.output != 0 && totalOutput != 0 {
			outputScore = float64(t.output) / float64(totalOutput) * 100
		}

		performance := w.Combine(budgetScore, activityScore, outputScore)
		scores = append(scores, DomainPerformance{
			Domain:           domain,
			PerformanceScore: performance,
			BudgetScore:      budgetScore,
			ActivityScore:    activityScore,
			OutputScore:      outputScore,
			MeetsThreshold:   performance >= PerformanceThreshold,
		})
	}

	return scores
}
