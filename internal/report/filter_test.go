package report

import (
	"math"
	"slices"
	"testing"

	"kasa/internal/core"
)

func sample() []core.Transaction {
	return []core.Transaction{
		core.NewIncome(core.Header{ID: "i1", Date: core.NewDate(2024, 3, 5), Description: "Kasa satışı"}, core.Cents(10000), core.Money{}, core.Money{}, core.Money{}),
		core.NewExpense(core.Header{ID: "e1", Date: core.NewDate(2024, 3, 3), Description: "Elektrik faturası"}, "bills", core.Cents(4000)),
		core.NewExpense(core.Header{ID: "e2", Date: core.NewDate(2024, 3, 1), Description: "Mart kirası"}, "rent", core.Cents(6000)),
		core.NewIncome(core.Header{ID: "i2", Date: core.NewDate(2024, 2, 20)}, core.Money{}, core.Cents(2500), core.Money{}, core.Money{}),
	}
}

func TestFilterScenario(t *testing.T) {
	txs := []core.Transaction{
		income("i", core.NewDate(2024, 3, 1), 10000),
		expense("e40", core.NewDate(2024, 3, 1), "t", 4000),
		expense("e60", core.NewDate(2024, 3, 1), "t", 6000),
	}
	got := ids(Apply(txs, Filter{Type: "expense", MinAmount: "50"}, Sort{}))
	if !slices.Equal(got, []string{"e60"}) {
		t.Fatalf("expected only e60, got %v", got)
	}
}

func TestFilterCriteria(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty", Filter{}, []string{"i1", "e1", "e2", "i2"}},
		{"all type", Filter{Type: "all", ExpenseTypeID: "all"}, []string{"i1", "e1", "e2", "i2"}},
		{"income", Filter{Type: "income"}, []string{"i1", "i2"}},
		{"date range inclusive", Filter{DateFrom: "2024-03-01", DateTo: "2024-03-03"}, []string{"e1", "e2"}},
		{"max comma decimal", Filter{MaxAmount: "40,00"}, []string{"e1", "i2"}},
		{"out of range bounds ignored", Filter{MinAmount: "184467440737095516.17", MaxAmount: "92233720368547758.08"}, []string{"i1", "e1", "e2", "i2"}},
		{"malformed bounds ignored", Filter{MinAmount: "abc", DateFrom: "yesterday", DateTo: "2024-99-01"}, []string{"i1", "e1", "e2", "i2"}},
		{"expense type keeps incomes", Filter{ExpenseTypeID: "rent"}, []string{"i1", "e2", "i2"}},
		{"search case insensitive", Filter{Search: "ELEKTRIK"}, []string{"e1"}},
		{"search income token", Filter{Search: "gel"}, []string{"i1", "i2"}},
		{"combined", Filter{Type: "expense", MinAmount: "45", Search: "kira"}, []string{"e2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, tx := range sample() {
				if tc.filter.Match(tx) {
					got = append(got, tx.Head().ID)
				}
			}
			if !slices.Equal(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterIdempotent(t *testing.T) {
	filters := []Filter{
		{},
		{Type: "expense", MinAmount: "45"},
		{DateFrom: "2024-03-02", Search: "a"},
		{ExpenseTypeID: "bills", MaxAmount: "100"},
	}
	for i, f := range filters {
		once := Apply(sample(), f, Sort{})
		twice := Apply(once, f, Sort{})
		if !slices.Equal(ids(once), ids(twice)) {
			t.Errorf("filter %d not idempotent: %v vs %v", i, ids(once), ids(twice))
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	txs := sample()
	before := ids(txs)
	_ = Apply(txs, Filter{}, Sort{Field: SortByAmount, Order: Ascending})
	if !slices.Equal(before, ids(txs)) {
		t.Fatalf("input reordered: %v -> %v", before, ids(txs))
	}
}

func TestSortFields(t *testing.T) {
	cases := []struct {
		sort Sort
		want []string
	}{
		{Sort{}, []string{"i1", "e1", "e2", "i2"}},
		{Sort{Field: SortByDate, Order: Ascending}, []string{"i2", "e2", "e1", "i1"}},
		{Sort{Field: SortByAmount, Order: Descending}, []string{"i1", "e2", "e1", "i2"}},
		{Sort{Field: SortByAmount, Order: Ascending}, []string{"i2", "e1", "e2", "i1"}},
		{Sort{Field: SortByType, Order: Ascending}, []string{"e1", "e2", "i1", "i2"}},
		{Sort{Field: SortByType, Order: Descending}, []string{"i1", "i2", "e1", "e2"}},
		{Sort{Field: SortByDescription, Order: Ascending}, []string{"i2", "e1", "i1", "e2"}},
		{Sort{Field: "bogus", Order: "sideways"}, []string{"i1", "e1", "e2", "i2"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.sort.Field)+"_"+string(tc.sort.Order), func(t *testing.T) {
			got := ids(Apply(sample(), Filter{}, tc.sort))
			if !slices.Equal(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSortStable(t *testing.T) {
	d := core.NewDate(2024, 3, 1)
	txs := []core.Transaction{
		expense("a", d, "t", 500),
		expense("b", d, "t", 100),
		expense("c", d, "t", 500),
		expense("d", d, "t", 100),
		expense("e", d, "t", 500),
	}
	for _, order := range []SortOrder{Ascending, Descending} {
		got := ids(Apply(txs, Filter{}, Sort{Field: SortByAmount, Order: order}))
		want := []string{"b", "d", "a", "c", "e"}
		if order == Descending {
			want = []string{"a", "c", "e", "b", "d"}
		}
		if !slices.Equal(got, want) {
			t.Errorf("%s: got %v, want %v", order, got, want)
		}
	}
	// same-day items keep their order under a date sort
	if got := ids(Apply(txs, Filter{}, Sort{})); !slices.Equal(got, ids(txs)) {
		t.Errorf("date sort reordered equal dates: %v", got)
	}
}

func TestSortDescriptionCollation(t *testing.T) {
	d := core.NewDate(2024, 3, 1)
	txs := []core.Transaction{
		core.NewExpense(core.Header{ID: "dolap", Date: d, Description: "dolap"}, "t", core.Cents(1)),
		core.NewExpense(core.Header{ID: "cay", Date: d, Description: "çay"}, "t", core.Cents(1)),
		core.NewExpense(core.Header{ID: "cam", Date: d, Description: "cam"}, "t", core.Cents(1)),
	}
	got := ids(Apply(txs, Filter{}, Sort{Field: SortByDescription, Order: Ascending}))
	if !slices.Equal(got, []string{"cam", "cay", "dolap"}) {
		t.Fatalf("unexpected collation order %v", got)
	}
}

func TestParseSort(t *testing.T) {
	if s := ParseSort("Amount", "ASC"); s.Field != SortByAmount || s.Order != Ascending {
		t.Fatalf("got %+v", s)
	}
	if s := ParseSort("", ""); s.Field != SortByDate || s.Order != Descending {
		t.Fatalf("got %+v", s)
	}
}

func TestRecent(t *testing.T) {
	types := []core.ExpenseType{{ID: "bills", Name: "Faturalar"}, {ID: "rent", Name: "Kira"}}
	txs := sample()

	if got := ids(Recent(txs, types, "", "all", 0)); !slices.Equal(got, []string{"i1", "e1", "e2", "i2"}) {
		t.Fatalf("unexpected list %v", got)
	}
	if got := ids(Recent(txs, types, "fatura", "", 0)); !slices.Equal(got, []string{"e1"}) {
		t.Fatalf("search by type name: %v", got)
	}
	if got := ids(Recent(txs, types, "kir", "expense", 0)); !slices.Equal(got, []string{"e2"}) {
		t.Fatalf("search with kind: %v", got)
	}
	if got := ids(Recent(txs, types, "", "income", 1)); !slices.Equal(got, []string{"i1"}) {
		t.Fatalf("limit: %v", got)
	}

	var many []core.Transaction
	for i := 0; i < 10; i++ {
		many = append(many, income(string(rune('a'+i)), core.NewDate(2024, 3, 1), 100))
	}
	if got := len(Recent(many, nil, "", "", 0)); got != DefaultRecentLimit {
		t.Fatalf("expected %d, got %d", DefaultRecentLimit, got)
	}
}

func TestRecentHugeLimit(t *testing.T) {
	if got := Recent(nil, nil, "", "", math.MaxInt); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
	if got := len(Recent(sample(), nil, "", "", math.MaxInt)); got != 4 {
		t.Fatalf("expected all 4 transactions, got %d", got)
	}

	var many []core.Transaction
	for i := 0; i < MaxRecentLimit+20; i++ {
		many = append(many, income("x", core.NewDate(2024, 3, 1), 100))
	}
	if got := len(Recent(many, nil, "", "", MaxRecentLimit+10)); got != MaxRecentLimit {
		t.Fatalf("expected limit capped at %d, got %d", MaxRecentLimit, got)
	}
}
