package qturing

import "math"

// BudgetStrategy yields the step budget for each search attempt.
type BudgetStrategy interface {
	Budget(attempt int) int
}

// LinearBudget tries Start, Start+Increment, Start+2*Increment, ...
type LinearBudget struct {
	Start     int
	Increment int
}

func (lb *LinearBudget) Budget(attempt int) int {
	increment := lb.Increment
	if increment < 1 {
		increment = 1
	}

	return lb.Start + attempt*increment
}

// ExponentialBudget doubles the budget on every attempt.
type ExponentialBudget struct {
	Initial int
}

func (eb *ExponentialBudget) Budget(attempt int) int {
	initial := eb.Initial
	if initial < 1 {
		initial = 1
	}

	return initial * int(math.Pow(2, float64(attempt)))
}
