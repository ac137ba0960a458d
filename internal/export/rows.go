// Package export projects a report view into flat rows and writes them to
// CSV, XLSX or a Google Sheet. Column order and date format are a contract
// with previously exported files.
package export

import (
	"fmt"
	"strings"

	"kasa/internal/core"
)

// Columns is the fixed header row.
var Columns = []string{"Tarih", "İşlem Tipi", "Açıklama", "Tutar", "Ödeme Türü", "KDV"}

const placeholder = "-"

// Row is one exported transaction.
type Row struct {
	Date        core.Date
	Kind        core.Kind
	Description string
	Amount      core.Money
	Breakdown   string
	// VAT is nil for expenses.
	VAT *core.Money
}

// Rows keeps the order of txs, which is normally the filtered and sorted view.
func Rows(txs []core.Transaction) []Row {
	out := make([]Row, 0, len(txs))
	for _, tx := range txs {
		h := tx.Head()
		r := Row{
			Date:        h.Date,
			Kind:        tx.Kind(),
			Description: h.Description,
			Amount:      tx.Value(),
			Breakdown:   placeholder,
		}
		if in, ok := tx.(core.Income); ok {
			r.Breakdown = fmt.Sprintf("Nakit: %s, KK: %s, IBAN: %s",
				in.Cash.Decimal().String(), in.Card.Decimal().String(), in.IBAN.Decimal().String())
			vat := in.VAT
			r.VAT = &vat
		}
		out = append(out, r)
	}
	return out
}

// Strings renders the row as text cells.
func (r Row) Strings() []string {
	desc := r.Description
	if desc == "" {
		desc = placeholder
	}
	vat := placeholder
	if r.VAT != nil {
		vat = r.VAT.Decimal().String()
	}
	return []string{
		core.ExportDate(r.Date),
		r.Kind.Label(),
		desc,
		r.Amount.String(),
		r.Breakdown,
		vat,
	}
}

// Sanitize prefixes cells that a spreadsheet would evaluate as a formula.
// The bare placeholder is left alone.
func Sanitize(cell string) string {
	if cell == "" || cell == placeholder {
		return cell
	}
	if strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}

// Filename is the download name for a CSV produced on the given day.
func Filename(today core.Date) string {
	return fmt.Sprintf("rapor_%02d_%02d_%04d.csv", today.Day(), today.Month(), today.Year())
}
