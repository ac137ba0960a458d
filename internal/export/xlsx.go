package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet names the worksheet of XLSX exports.
const DefaultSheet = "Rapor"

// WriteXLSX writes a single-sheet workbook. Amount and VAT are numeric
// cells; excelize stores strings as shared strings, never as formulas.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DefaultSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(DefaultSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(DefaultSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := r.cells()
		if err := f.SetSheetRow(DefaultSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := f.SetColWidth(DefaultSheet, "A", "B", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(DefaultSheet, "C", "C", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(DefaultSheet, "E", "E", 36); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (r Row) cells() []any {
	s := r.Strings()
	var vat any = s[5]
	if r.VAT != nil {
		vat = r.VAT.Float()
	}
	return []any{s[0], s[1], s[2], r.Amount.Float(), s[4], vat}
}
