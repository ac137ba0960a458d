package report

import (
	"strings"

	"golang.org/x/text/cases"

	"kasa/internal/core"
)

// DefaultRecentLimit is how many transactions the dashboard list shows.
// MaxRecentLimit bounds a caller-chosen limit.
const (
	DefaultRecentLimit = 7
	MaxRecentLimit     = 100
)

// incomeToken is the legacy label incomes also answer to in searches.
const incomeToken = "gelir"

// Filter holds raw report criteria as typed by the user. Empty fields do
// not constrain; bounds that fail to parse are ignored.
type Filter struct {
	DateFrom      string `json:"dateFrom"`
	DateTo        string `json:"dateTo"`
	Type          string `json:"type"`
	MinAmount     string `json:"minAmount"`
	MaxAmount     string `json:"maxAmount"`
	ExpenseTypeID string `json:"expenseType"`
	Search        string `json:"search"`
}

type matcher struct {
	from, to      *core.Date
	kind          core.Kind
	min, max      *core.Money
	expenseTypeID string
	search        string
	fold          cases.Caser
}

func (f Filter) compile() *matcher {
	m := &matcher{fold: cases.Fold()}
	if d, err := core.ParseDate(f.DateFrom); err == nil {
		m.from = &d
	}
	if d, err := core.ParseDate(f.DateTo); err == nil {
		m.to = &d
	}
	if k, err := core.ParseKind(f.Type); err == nil {
		m.kind = k
	}
	m.min = amountBound(f.MinAmount)
	m.max = amountBound(f.MaxAmount)
	if id := strings.TrimSpace(f.ExpenseTypeID); id != "" && id != "all" {
		m.expenseTypeID = id
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		m.search = m.fold.String(s)
	}
	return m
}

// amountBound is nil when s is blank, malformed or out of range.
func amountBound(s string) *core.Money {
	d, err := core.ParseDecimal(s)
	if err != nil {
		return nil
	}
	v, err := core.NewMoney(d)
	if err != nil {
		return nil
	}
	return &v
}

func (m *matcher) match(tx core.Transaction) bool {
	h := tx.Head()
	if m.from != nil && h.Date.Compare(*m.from) < 0 {
		return false
	}
	if m.to != nil && h.Date.Compare(*m.to) > 0 {
		return false
	}
	if m.kind != "" && tx.Kind() != m.kind {
		return false
	}
	if m.min != nil && tx.Value().Cents < m.min.Cents {
		return false
	}
	if m.max != nil && tx.Value().Cents > m.max.Cents {
		return false
	}
	if m.expenseTypeID != "" {
		if ex, ok := tx.(core.Expense); ok && ex.ExpenseTypeID != m.expenseTypeID {
			return false
		}
	}
	if m.search != "" && !m.matchesSearch(tx, "") {
		return false
	}
	return true
}

// matchesSearch checks the description, the income token for incomes and,
// when typeName is set, the expense type name for expenses.
func (m *matcher) matchesSearch(tx core.Transaction, typeName string) bool {
	if strings.Contains(m.fold.String(tx.Head().Description), m.search) {
		return true
	}
	switch tx.(type) {
	case core.Income:
		return strings.Contains(incomeToken, m.search)
	case core.Expense:
		return typeName != "" && strings.Contains(m.fold.String(typeName), m.search)
	}
	return false
}

// Match reports whether tx satisfies every criterion of f.
func (f Filter) Match(tx core.Transaction) bool {
	return f.compile().match(tx)
}

// Apply filters txs with f and orders the result by s. The input slice is
// left untouched.
func Apply(txs []core.Transaction, f Filter, s Sort) []core.Transaction {
	m := f.compile()
	out := where(txs, m.match)
	s.apply(out)
	return out
}

// Recent is the dashboard transaction list: optional kind ("income",
// "expense", anything else for all), a search that also matches expense type
// names, truncated to limit (DefaultRecentLimit when limit <= 0, at most
// MaxRecentLimit). Snapshot order is kept.
func Recent(txs []core.Transaction, types []core.ExpenseType, search, kind string, limit int) []core.Transaction {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)
	m := Filter{Type: kind, Search: search}.compile()
	out := make([]core.Transaction, 0, min(limit, len(txs)))
	for _, tx := range txs {
		if len(out) == limit {
			break
		}
		if m.kind != "" && tx.Kind() != m.kind {
			continue
		}
		if m.search != "" {
			typeName := ""
			if ex, ok := tx.(core.Expense); ok {
				typeName = TypeName(types, ex.ExpenseTypeID)
			}
			if !m.matchesSearch(tx, typeName) {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}
