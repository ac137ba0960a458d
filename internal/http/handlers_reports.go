package http

import (
	"bytes"
	"fmt"
	"net/http"

	"kasa/internal/core"
	"kasa/internal/export"
	"kasa/internal/log"
	"kasa/internal/report"
	"kasa/internal/store"
)

// transactionView is the API shape of a transaction: the persisted record
// plus the resolved expense type name.
type transactionView struct {
	core.Record
	ExpenseTypeName string `json:"expenseTypeName,omitempty"`
}

func viewOf(tx core.Transaction, types []core.ExpenseType) transactionView {
	v := transactionView{Record: core.ToRecord(tx)}
	if ex, ok := tx.(core.Expense); ok {
		v.ExpenseTypeName = report.TypeName(types, ex.ExpenseTypeID)
	}
	return v
}

func viewsOf(txs []core.Transaction, types []core.ExpenseType) []transactionView {
	out := make([]transactionView, len(txs))
	for i, tx := range txs {
		out[i] = viewOf(tx, types)
	}
	return out
}

// cachedView serves build's result for the current snapshot and day,
// computing it at most once per ledger version.
func (s *Server) cachedView(w http.ResponseWriter, r *http.Request, name string, build func(snap store.Snapshot, today core.Date) any) {
	today, err := s.todayParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid today", err.Error())
		return
	}
	snap := s.ledger.Snapshot()
	key := fmt.Sprintf("%s|v%d|%s|%s", name, snap.Version, today, r.URL.RawQuery)
	v, err := s.views.GetOrLoad(key, func() (any, error) {
		return build(snap, today), nil
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

// summaryView adds the lira-formatted card values next to the raw amounts.
type summaryView struct {
	report.Summary
	Display map[string]string `json:"display"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, "summary", func(snap store.Snapshot, today core.Date) any {
		sum := report.MonthSummary(snap.Transactions, today)
		return summaryView{
			Summary: sum,
			Display: map[string]string{
				"monthTotal":          core.FormatCurrency(sum.MonthTotal),
				"monthlyAverage":      core.FormatCurrency(sum.MonthlyAverage),
				"yearlyAverage":       core.FormatCurrency(sum.YearlyAverage),
				"previousDayTurnover": core.FormatCurrency(sum.PreviousDayTurnover),
				"dailyAverage":        core.FormatCurrency(sum.DailyAverage),
				"balance":             core.FormatCurrency(sum.Balance),
			},
		}
	})
}

func (s *Server) handleLast7Days(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, "last7", func(snap store.Snapshot, today core.Date) any {
		return report.Last7Days(snap.Transactions, today)
	})
}

func (s *Server) handleLast12Months(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, "last12", func(snap store.Snapshot, today core.Date) any {
		return report.Last12Months(snap.Transactions, today)
	})
}

func (s *Server) handleExpenseByType(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, "bytype", func(snap store.Snapshot, _ core.Date) any {
		return report.ExpenseByType(snap.Transactions, snap.ExpenseTypes)
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := min(intParam(r, "limit", report.DefaultRecentLimit), report.MaxRecentLimit)
	s.cachedView(w, r, "recent", func(snap store.Snapshot, _ core.Date) any {
		txs := report.Recent(snap.Transactions, snap.ExpenseTypes, q.Get("search"), q.Get("kind"), limit)
		return viewsOf(txs, snap.ExpenseTypes)
	})
}

type detailedReport struct {
	Filter       report.Filter     `json:"filter"`
	Sort         report.Sort       `json:"sort"`
	Count        int               `json:"count"`
	TotalIncome  core.Money        `json:"totalIncome"`
	TotalExpense core.Money        `json:"totalExpense"`
	Balance      core.Money        `json:"balance"`
	Transactions []transactionView `json:"transactions"`
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	f, sort := filterParams(r)
	snap := s.ledger.Snapshot()
	txs := report.Apply(snap.Transactions, f, sort)

	respondJSON(w, http.StatusOK, detailedReport{
		Filter:       f,
		Sort:         sort,
		Count:        len(txs),
		TotalIncome:  report.TotalIncome(txs),
		TotalExpense: report.TotalExpense(txs),
		Balance:      report.Balance(txs),
		Transactions: viewsOf(txs, snap.ExpenseTypes),
	})
}

func (s *Server) handleDetailedCSV(w http.ResponseWriter, r *http.Request) {
	today, err := s.todayParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid today", err.Error())
		return
	}
	f, sort := filterParams(r)
	txs := report.Apply(s.ledger.Snapshot().Transactions, f, sort)

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, export.Rows(txs)); err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		log.FieldOperation, log.OpExport, log.FieldRows, len(txs))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(today)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type analyticsReport struct {
	report.Analysis
	TopExpenses []transactionView `json:"topExpenses"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, "analytics", func(snap store.Snapshot, today core.Date) any {
		a := report.Analyze(snap.Transactions, snap.ExpenseTypes, today)
		top := make([]core.Transaction, len(a.TopExpenses))
		for i, ex := range a.TopExpenses {
			top[i] = ex
		}
		return analyticsReport{Analysis: a, TopExpenses: viewsOf(top, snap.ExpenseTypes)}
	})
}
