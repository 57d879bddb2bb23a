package core

import (
	"errors"
	"fmt"
	"math"
	"santasim/pkg/domain"
)

var (
	// ErrEmptyPopulation is returned when budgets are requested for an empty population.
	ErrEmptyPopulation = errors.New("budget: population is empty")
	// ErrZeroMeanScore is returned when the population's mean average score is zero,
	// which leaves the budget unit undefined.
	ErrZeroMeanScore = errors.New("budget: mean average score is zero")
	// ErrInvalidBudget is returned for negative or non-finite global budgets.
	ErrInvalidBudget = errors.New("budget: global budget must be a finite non-negative number")
)

// Ledger maps a child id to its remaining spendable amount for the round.
type Ledger map[int]float64

// BudgetPlan is the outcome of splitting the global budget across a population.
type BudgetPlan struct {
	MeanScore float64
	Unit      float64
	Budgets   Ledger
}

// Total returns the sum of all assigned budgets.
func (p BudgetPlan) Total() float64 {
	var sum float64
	for _, b := range p.Budgets {
		sum += b
	}
	return sum
}

// ValidateBudget rejects negative, NaN and infinite budgets.
func ValidateBudget(budget float64) error {
	if budget < 0 || math.IsNaN(budget) || math.IsInf(budget, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidBudget, budget)
	}
	return nil
}

// ComputeBudgets splits globalBudget proportionally to each child's average
// score. Children must already be refreshed.
//
//	unit      = globalBudget / mean(averageScore)
//	budget[c] = averageScore(c) * unit
func ComputeBudgets(children []domain.Child, globalBudget float64) (BudgetPlan, error) {
	if err := ValidateBudget(globalBudget); err != nil {
		return BudgetPlan{}, err
	}
	if len(children) == 0 {
		return BudgetPlan{}, ErrEmptyPopulation
	}
	var sum float64
	for _, c := range children {
		sum += c.AverageScore
	}
	mean := sum / float64(len(children))
	if mean == 0 {
		return BudgetPlan{}, fmt.Errorf("%w across %d children", ErrZeroMeanScore, len(children))
	}
	unit := globalBudget / mean
	ledger := make(Ledger, len(children))
	for _, c := range children {
		ledger[c.ID] = c.AverageScore * unit
	}
	return BudgetPlan{MeanScore: mean, Unit: unit, Budgets: ledger}, nil
}
