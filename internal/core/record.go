package core

import (
	"fmt"
)

// Record is the flat JSON shape of a transaction, shared by persistence and
// the HTTP API. Channel fields are only set for incomes, ExpenseType and
// Amount only for expenses.
type Record struct {
	ID          string `json:"id"`
	Date        Date   `json:"date"`
	Type        Kind   `json:"type"`
	Description string `json:"description"`

	Cash  *Money `json:"cashAmount,omitempty"`
	Card  *Money `json:"creditCardAmount,omitempty"`
	IBAN  *Money `json:"ibanAmount,omitempty"`
	VAT   *Money `json:"vatAmount,omitempty"`
	Total *Money `json:"totalAmount,omitempty"`

	ExpenseType string `json:"expenseType,omitempty"`
	Amount      *Money `json:"amount,omitempty"`
}

// ToRecord flattens a transaction.
func ToRecord(tx Transaction) Record {
	h := tx.Head()
	r := Record{ID: h.ID, Date: h.Date, Type: tx.Kind(), Description: h.Description}
	switch t := tx.(type) {
	case Income:
		r.Cash, r.Card, r.IBAN, r.VAT, r.Total = ptr(t.Cash), ptr(t.Card), ptr(t.IBAN), ptr(t.VAT), ptr(t.Total)
	case Expense:
		r.ExpenseType = t.ExpenseTypeID
		r.Amount = ptr(t.Amount)
	}
	return r
}

// Transaction rebuilds the typed variant. An income's total is recomputed
// from its channels; a stored totalAmount is ignored.
func (r Record) Transaction() (Transaction, error) {
	h := Header{ID: r.ID, Date: r.Date, Description: r.Description}
	switch r.Type {
	case KindIncome:
		return NewIncome(h, val(r.Cash), val(r.Card), val(r.IBAN), val(r.VAT)), nil
	case KindExpense:
		return NewExpense(h, r.ExpenseType, val(r.Amount)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Type)
}

// ToRecords flattens a snapshot, keeping its order.
func ToRecords(txs []Transaction) []Record {
	out := make([]Record, len(txs))
	for i, tx := range txs {
		out[i] = ToRecord(tx)
	}
	return out
}

// FromRecords rebuilds a snapshot, failing on the first unknown kind.
func FromRecords(records []Record) ([]Transaction, error) {
	out := make([]Transaction, 0, len(records))
	for i, r := range records {
		tx, err := r.Transaction()
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, r.ID, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func ptr(m Money) *Money {
	return &m
}

func val(m *Money) Money {
	if m == nil {
		return Money{}
	}
	return *m
}
