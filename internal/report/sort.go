package report

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"kasa/internal/core"
)

type (
	SortField string
	SortOrder string
)

const (
	SortByDate        SortField = "date"
	SortByType        SortField = "type"
	SortByAmount      SortField = "amount"
	SortByDescription SortField = "description"

	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Sort orders a report view. The zero value sorts by date, newest first.
type Sort struct {
	Field SortField `json:"sortBy"`
	Order SortOrder `json:"sortOrder"`
}

// ParseSort reads user input, falling back to date/desc for unknown values.
func ParseSort(field, order string) Sort {
	s := Sort{Field: SortByDate, Order: Descending}
	switch f := SortField(strings.ToLower(strings.TrimSpace(field))); f {
	case SortByDate, SortByType, SortByAmount, SortByDescription:
		s.Field = f
	}
	if SortOrder(strings.ToLower(strings.TrimSpace(order))) == Ascending {
		s.Order = Ascending
	}
	return s
}

func (s Sort) normalized() Sort {
	return ParseSort(string(s.Field), string(s.Order))
}

// apply sorts txs in place. Equal keys keep their relative order.
func (s Sort) apply(txs []core.Transaction) {
	s = s.normalized()
	// Collators keep internal buffers and cannot be shared across goroutines.
	coll := collate.New(language.Turkish)

	var cmp func(a, b core.Transaction) int
	switch s.Field {
	case SortByType:
		cmp = func(a, b core.Transaction) int {
			return coll.CompareString(string(a.Kind()), string(b.Kind()))
		}
	case SortByAmount:
		cmp = func(a, b core.Transaction) int {
			av, bv := a.Value().Cents, b.Value().Cents
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case SortByDescription:
		cmp = func(a, b core.Transaction) int {
			return coll.CompareString(a.Head().Description, b.Head().Description)
		}
	default:
		cmp = func(a, b core.Transaction) int {
			return a.Head().Date.Compare(b.Head().Date)
		}
	}

	if s.Order == Descending {
		asc := cmp
		cmp = func(a, b core.Transaction) int { return -asc(a, b) }
	}
	slices.SortStableFunc(txs, cmp)
}
