// Package report derives dashboard figures, chart series and filtered
// report views from a transaction snapshot.
//
// Every function is pure: it reads the slice it is given, never modifies
// it, and takes the reference day explicitly so results are reproducible.
package report

import (
	"kasa/internal/core"
)

// Summary is the set of headline figures shown for the current month.
type Summary struct {
	Month               string     `json:"month"`
	MonthTotal          core.Money `json:"monthTotal"`
	MonthlyAverage      core.Money `json:"monthlyAverage"`
	YearlyAverage       core.Money `json:"yearlyAverage"`
	PreviousDayTurnover core.Money `json:"previousDayTurnover"`
	DailyAverage        core.Money `json:"dailyAverage"`
	TotalIncome         core.Money `json:"totalIncome"`
	TotalExpense        core.Money `json:"totalExpense"`
	Balance             core.Money `json:"balance"`
}

// TotalIncome sums the totals of all incomes.
func TotalIncome(txs []core.Transaction) core.Money {
	var sum core.Money
	for _, tx := range txs {
		if in, ok := tx.(core.Income); ok {
			sum = sum.Add(in.Total)
		}
	}
	return sum
}

// TotalExpense sums the amounts of all expenses.
func TotalExpense(txs []core.Transaction) core.Money {
	var sum core.Money
	for _, tx := range txs {
		if ex, ok := tx.(core.Expense); ok {
			sum = sum.Add(ex.Amount)
		}
	}
	return sum
}

func Balance(txs []core.Transaction) core.Money {
	return TotalIncome(txs).Sub(TotalExpense(txs))
}

// InCurrentMonth keeps the transactions dated in today's calendar month.
func InCurrentMonth(txs []core.Transaction, today core.Date) []core.Transaction {
	return where(txs, func(tx core.Transaction) bool {
		return tx.Head().Date.SameMonth(today)
	})
}

// MonthlyAverage spreads this month's income over the days elapsed so far.
func MonthlyAverage(txs []core.Transaction, today core.Date) core.Money {
	return TotalIncome(InCurrentMonth(txs, today)).DivRound(today.Day())
}

// YearlyAverage divides this year's income by the number of distinct
// months of the year that have at least one transaction of either kind.
func YearlyAverage(txs []core.Transaction, today core.Date) core.Money {
	yearly := where(txs, func(tx core.Transaction) bool {
		return tx.Head().Date.Year() == today.Year()
	})
	months := make(map[int]struct{})
	for _, tx := range yearly {
		months[tx.Head().Date.Month()] = struct{}{}
	}
	return TotalIncome(yearly).DivRound(len(months))
}

// PreviousDayTurnover is the income recorded on the day before today.
func PreviousDayTurnover(txs []core.Transaction, today core.Date) core.Money {
	yesterday := today.AddDays(-1)
	return TotalIncome(where(txs, func(tx core.Transaction) bool {
		return tx.Head().Date.SameDay(yesterday)
	}))
}

// DailyAverage divides this month's income by the number of distinct days
// of the month that have at least one transaction.
func DailyAverage(txs []core.Transaction, today core.Date) core.Money {
	monthly := InCurrentMonth(txs, today)
	days := make(map[int]struct{})
	for _, tx := range monthly {
		days[tx.Head().Date.Day()] = struct{}{}
	}
	return TotalIncome(monthly).DivRound(len(days))
}

// MonthSummary computes the dashboard cards for today's month.
func MonthSummary(txs []core.Transaction, today core.Date) Summary {
	return Summary{
		Month:               core.MonthTitle(today),
		MonthTotal:          TotalIncome(InCurrentMonth(txs, today)),
		MonthlyAverage:      MonthlyAverage(txs, today),
		YearlyAverage:       YearlyAverage(txs, today),
		PreviousDayTurnover: PreviousDayTurnover(txs, today),
		DailyAverage:        DailyAverage(txs, today),
		TotalIncome:         TotalIncome(txs),
		TotalExpense:        TotalExpense(txs),
		Balance:             Balance(txs),
	}
}

func where(txs []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}
