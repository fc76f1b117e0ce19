package core

import "github.com/shopspring/decimal"

// TotalSpend sums amounts. An empty input totals zero.
func TotalSpend(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// BudgetStatus compares period spend against the configured ceiling.
type BudgetStatus struct {
	Total  decimal.Decimal
	Budget decimal.Decimal
}

func NewBudgetStatus(total, budget decimal.Decimal) BudgetStatus {
	return BudgetStatus{Total: total, Budget: budget}
}

// OverBudget reports whether spend strictly exceeds the ceiling.
func (s BudgetStatus) OverBudget() bool {
	return s.Total.GreaterThan(s.Budget)
}

// Delta is the unsigned distance between spend and the ceiling: the overage
// when over budget, otherwise what remains.
func (s BudgetStatus) Delta() decimal.Decimal {
	return s.Budget.Sub(s.Total).Abs()
}
