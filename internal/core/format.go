package core

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	dayLabelLayout   = "02/01"
	monthLabelLayout = "Jan 2006"
	monthTitleLayout = "January 2006"
	exportDateLayout = "02.01.2006"
)

var trPrinter = message.NewPrinter(language.Turkish)

// FormatCurrency renders an amount as Turkish lira with Turkish digit
// grouping, e.g. ₺1.234,50.
func FormatCurrency(m Money) string {
	sign := ""
	if m.Cents < 0 {
		sign = "-"
		m.Cents = -m.Cents
	}
	return sign + "₺" + trPrinter.Sprintf("%.2f", m.Float())
}

// DayLabel is the short chart label for a day (dd/MM).
func DayLabel(d Date) string {
	return d.Format(dayLabelLayout)
}

// MonthLabel is the short chart label for a month (e.g. "Mar 2024").
func MonthLabel(d Date) string {
	return d.Format(monthLabelLayout)
}

// MonthTitle is the long month heading (e.g. "March 2024").
func MonthTitle(d Date) string {
	return d.Format(monthTitleLayout)
}

// ExportDate formats a date for report exports (dd.MM.yyyy).
func ExportDate(d Date) string {
	return d.Format(exportDateLayout)
}
