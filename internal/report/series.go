package report

import (
	"kasa/internal/core"
)

// Point is one bucket of a chart series.
type Point struct {
	Label   string     `json:"label"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
}

// Last7Days returns seven daily buckets, oldest first, the last one being today.
func Last7Days(txs []core.Transaction, today core.Date) []Point {
	points := make([]Point, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDays(-i)
		bucket := where(txs, func(tx core.Transaction) bool {
			return tx.Head().Date.SameDay(day)
		})
		points = append(points, Point{
			Label:   core.DayLabel(day),
			Income:  TotalIncome(bucket),
			Expense: TotalExpense(bucket),
		})
	}
	return points
}

// Last12Months returns twelve monthly buckets, oldest first, the last one
// being today's month.
func Last12Months(txs []core.Transaction, today core.Date) []Point {
	points := make([]Point, 0, 12)
	for i := 11; i >= 0; i-- {
		month := today.AddMonths(-i)
		bucket := where(txs, func(tx core.Transaction) bool {
			return tx.Head().Date.SameMonth(month)
		})
		points = append(points, Point{
			Label:   core.MonthLabel(month),
			Income:  TotalIncome(bucket),
			Expense: TotalExpense(bucket),
		})
	}
	return points
}
