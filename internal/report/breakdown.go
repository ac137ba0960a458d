package report

import (
	"slices"

	"github.com/shopspring/decimal"

	"kasa/internal/core"
)

// DefaultTopExpenses is the size of the largest-expenses list.
const DefaultTopExpenses = 10

type (
	// Distribution splits income by payment channel. Percentages are
	// rounded to whole numbers and are all zero when there is no income.
	Distribution struct {
		Cash        core.Money `json:"cash"`
		Card        core.Money `json:"card"`
		IBAN        core.Money `json:"iban"`
		Total       core.Money `json:"total"`
		CashPercent int        `json:"cashPercent"`
		CardPercent int        `json:"cardPercent"`
		IBANPercent int        `json:"ibanPercent"`
	}

	// Growth compares month-to-date income with the whole previous month.
	Growth struct {
		CurrentMonth core.Money `json:"currentMonth"`
		LastMonth    core.Money `json:"lastMonth"`
		Rate         float64    `json:"growthRate"`
	}

	TypeTrend struct {
		ID      string     `json:"id"`
		Name    string     `json:"name"`
		Total   core.Money `json:"total"`
		Average core.Money `json:"average"`
		Count   int        `json:"count"`
	}

	// Analysis bundles the analytical report figures.
	Analysis struct {
		TopExpenses    []core.Expense `json:"-"`
		Distribution   Distribution   `json:"paymentDistribution"`
		Growth         Growth         `json:"monthlyGrowth"`
		TotalVAT       core.Money     `json:"totalVat"`
		VATRate        float64        `json:"vatRate"`
		AverageIncome  core.Money     `json:"averageIncome"`
		AverageExpense core.Money     `json:"averageExpense"`
		Trends         []TypeTrend    `json:"expenseTypeTrends"`
	}
)

// ExpenseByType totals expenses per expense type name. Every name in types
// is present, zero when unused; expenses whose type id does not resolve are
// left out.
func ExpenseByType(txs []core.Transaction, types []core.ExpenseType) map[string]core.Money {
	out := make(map[string]core.Money, len(types))
	names := make(map[string]string, len(types))
	for _, et := range types {
		out[et.Name] = core.Money{}
		if _, seen := names[et.ID]; !seen {
			names[et.ID] = et.Name
		}
	}
	for _, tx := range txs {
		ex, ok := tx.(core.Expense)
		if !ok {
			continue
		}
		name, ok := names[ex.ExpenseTypeID]
		if !ok {
			continue
		}
		out[name] = out[name].Add(ex.Amount)
	}
	return out
}

// TopExpenses returns the n largest expenses, largest first. Ties keep their
// snapshot order. n <= 0 selects DefaultTopExpenses.
func TopExpenses(txs []core.Transaction, n int) []core.Expense {
	if n <= 0 {
		n = DefaultTopExpenses
	}
	expenses := make([]core.Expense, 0, len(txs))
	for _, tx := range txs {
		if ex, ok := tx.(core.Expense); ok {
			expenses = append(expenses, ex)
		}
	}
	slices.SortStableFunc(expenses, func(a, b core.Expense) int {
		switch {
		case a.Amount.Cents > b.Amount.Cents:
			return -1
		case a.Amount.Cents < b.Amount.Cents:
			return 1
		}
		return 0
	})
	if len(expenses) > n {
		expenses = expenses[:n]
	}
	return expenses
}

// TypeName resolves an expense type id, falling back to core.UnknownExpenseType.
func TypeName(types []core.ExpenseType, id string) string {
	for _, et := range types {
		if et.ID == id {
			return et.Name
		}
	}
	return core.UnknownExpenseType
}

func PaymentDistribution(txs []core.Transaction) Distribution {
	var d Distribution
	for _, tx := range txs {
		if in, ok := tx.(core.Income); ok {
			d.Cash = d.Cash.Add(in.Cash)
			d.Card = d.Card.Add(in.Card)
			d.IBAN = d.IBAN.Add(in.IBAN)
		}
	}
	d.Total = d.Cash.Add(d.Card).Add(d.IBAN)
	d.CashPercent = percent(d.Cash, d.Total)
	d.CardPercent = percent(d.Card, d.Total)
	d.IBANPercent = percent(d.IBAN, d.Total)
	return d
}

func percent(part, total core.Money) int {
	if total.Cents == 0 {
		return 0
	}
	p := decimal.NewFromInt(part.Cents).Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(total.Cents), 0)
	return int(p.IntPart())
}

// MonthlyGrowth compares income from the first of today's month up to today
// with the income of the whole previous month. The rate is a percentage
// with two decimals, zero when the previous month had no income.
func MonthlyGrowth(txs []core.Transaction, today core.Date) Growth {
	start := today.StartOfMonth()
	prev := today.AddMonths(-1)
	g := Growth{
		CurrentMonth: TotalIncome(where(txs, func(tx core.Transaction) bool {
			return tx.Head().Date.Between(start, today)
		})),
		LastMonth: TotalIncome(where(txs, func(tx core.Transaction) bool {
			return tx.Head().Date.SameMonth(prev)
		})),
	}
	if g.LastMonth.Cents != 0 {
		diff := decimal.NewFromInt(g.CurrentMonth.Sub(g.LastMonth).Cents)
		g.Rate = diff.Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(g.LastMonth.Cents), 2).
			InexactFloat64()
	}
	return g
}

// TotalVAT sums the VAT recorded on incomes.
func TotalVAT(txs []core.Transaction) core.Money {
	var sum core.Money
	for _, tx := range txs {
		if in, ok := tx.(core.Income); ok {
			sum = sum.Add(in.VAT)
		}
	}
	return sum
}

// VATRate is total VAT as a percentage of total income, with two decimals.
// It is zero when there is no income.
func VATRate(txs []core.Transaction) float64 {
	income := TotalIncome(txs)
	if income.Cents == 0 {
		return 0
	}
	return decimal.NewFromInt(TotalVAT(txs).Cents).Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(income.Cents), 2).
		InexactFloat64()
}

// AverageTransaction returns the mean income total and the mean expense
// amount per transaction of each kind.
func AverageTransaction(txs []core.Transaction) (income, expense core.Money) {
	var incomes, expenses int
	for _, tx := range txs {
		switch tx.(type) {
		case core.Income:
			incomes++
		case core.Expense:
			expenses++
		}
	}
	return TotalIncome(txs).DivRound(incomes), TotalExpense(txs).DivRound(expenses)
}

// ExpenseTypeTrends reports total, mean and count of expenses per type, in
// the order the types are given.
func ExpenseTypeTrends(txs []core.Transaction, types []core.ExpenseType) []TypeTrend {
	trends := make([]TypeTrend, 0, len(types))
	for _, et := range types {
		tr := TypeTrend{ID: et.ID, Name: et.Name}
		for _, tx := range txs {
			if ex, ok := tx.(core.Expense); ok && ex.ExpenseTypeID == et.ID {
				tr.Total = tr.Total.Add(ex.Amount)
				tr.Count++
			}
		}
		tr.Average = tr.Total.DivRound(tr.Count)
		trends = append(trends, tr)
	}
	return trends
}

// Analyze computes every figure of the analytical report.
func Analyze(txs []core.Transaction, types []core.ExpenseType, today core.Date) Analysis {
	avgIncome, avgExpense := AverageTransaction(txs)
	return Analysis{
		TopExpenses:    TopExpenses(txs, DefaultTopExpenses),
		Distribution:   PaymentDistribution(txs),
		Growth:         MonthlyGrowth(txs, today),
		TotalVAT:       TotalVAT(txs),
		VATRate:        VATRate(txs),
		AverageIncome:  avgIncome,
		AverageExpense: avgExpense,
		Trends:         ExpenseTypeTrends(txs, types),
	}
}
