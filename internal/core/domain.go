package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// UnknownExpenseType is shown for expenses whose type no longer resolves.
const UnknownExpenseType = "Bilinmeyen"

const maxDescriptionLen = 200

type (
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Header holds the fields shared by every transaction variant.
	Header struct {
		ID          string
		Date        Date
		Description string
	}

	// Income is money received, split by payment channel. Total is always
	// Cash + Card + IBAN; VAT is tracked separately and is not part of it.
	Income struct {
		Header
		Cash  Money
		Card  Money
		IBAN  Money
		VAT   Money
		Total Money
	}

	// Expense is money spent, categorised by an ExpenseType id.
	Expense struct {
		Header
		ExpenseTypeID string
		Amount        Money
	}

	ExpenseType struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	ExportSettings struct {
		FilePath string `json:"filePath"`
	}
)

// Transaction is either an Income or an Expense. The set of variants is
// closed; consumers switch on the concrete type.
type Transaction interface {
	Head() Header
	Kind() Kind
	// Value is the variant amount: Total for incomes, Amount for expenses.
	Value() Money
	Validate() error
	isTransaction()
}

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrNoPayment          = errors.New("at least one payment amount must be positive")
	ErrTotalMismatch      = errors.New("total does not match payment amounts")
	ErrMissingExpenseType = errors.New("expense type is required")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrUnknownKind        = errors.New("unknown transaction kind")
)

// ValidationError names the field that failed and wraps the sentinel cause.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// ParseKind accepts "income" or "expense".
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIncome:
		return KindIncome, nil
	case KindExpense:
		return KindExpense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Label is the legacy display label used in exports.
func (k Kind) Label() string {
	if k == KindIncome {
		return "Gelir"
	}
	return "Gider"
}

// NewIncome builds an income whose Total is the sum of its payment channels.
func NewIncome(h Header, cash, card, iban, vat Money) Income {
	return Income{
		Header: h,
		Cash:   cash,
		Card:   card,
		IBAN:   iban,
		VAT:    vat,
		Total:  cash.Add(card).Add(iban),
	}
}

func NewExpense(h Header, expenseTypeID string, amount Money) Expense {
	return Expense{Header: h, ExpenseTypeID: expenseTypeID, Amount: amount}
}

func (i Income) Head() Header { return i.Header }
func (i Income) Kind() Kind { return KindIncome }
func (i Income) Value() Money { return i.Total }
func (Income) isTransaction() {}
func (e Expense) Head() Header { return e.Header }
func (e Expense) Kind() Kind { return KindExpense }
func (e Expense) Value() Money { return e.Amount }
func (Expense) isTransaction() {}

// WithID returns a copy of tx carrying the given id.
func WithID(tx Transaction, id string) Transaction {
	switch t := tx.(type) {
	case Income:
		t.ID = id
		return t
	case Expense:
		t.ID = id
		return t
	}
	return tx
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (h Header) validate() error {
	if err := h.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if len([]rune(h.Description)) > maxDescriptionLen {
		return invalid("description", ErrDescriptionTooLong)
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Header.validate(); err != nil {
		return err
	}
	amounts := []struct {
		field string
		m     Money
	}{
		{"cashAmount", i.Cash},
		{"creditCardAmount", i.Card},
		{"ibanAmount", i.IBAN},
		{"vatAmount", i.VAT},
	}
	for _, a := range amounts {
		if a.m.Cents < 0 {
			return invalid(a.field, ErrNegativeAmount)
		}
	}
	sum := i.Cash.Add(i.Card).Add(i.IBAN)
	if sum.Cents == 0 {
		return invalid("payment", ErrNoPayment)
	}
	if i.Total != sum {
		return invalid("totalAmount", ErrTotalMismatch)
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Header.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.ExpenseTypeID) == "" {
		return invalid("expenseType", ErrMissingExpenseType)
	}
	if err := e.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	return nil
}
