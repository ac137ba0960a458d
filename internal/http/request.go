package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"kasa/internal/core"
	"kasa/internal/report"
)

var errBadToday = errors.New("today must be yyyy-MM-dd")

// today reads the optional ?today= override, defaulting to the server clock.
func (s *Server) todayParam(r *http.Request) (core.Date, error) {
	raw := r.URL.Query().Get("today")
	if raw == "" {
		return s.today(), nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, errBadToday
	}
	return d, nil
}

// filterParams reads report criteria. Malformed values are kept as typed;
// the filter ignores what it cannot parse.
func filterParams(r *http.Request) (report.Filter, report.Sort) {
	q := r.URL.Query()
	f := report.Filter{
		DateFrom:      q.Get("dateFrom"),
		DateTo:        q.Get("dateTo"),
		Type:          q.Get("type"),
		MinAmount:     q.Get("minAmount"),
		MaxAmount:     q.Get("maxAmount"),
		ExpenseTypeID: q.Get("expenseType"),
		Search:        q.Get("search"),
	}
	return f, report.ParseSort(q.Get("sortBy"), q.Get("sortOrder"))
}

func intParam(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

// malformedError marks a body that could not be decoded at all.
type malformedError struct {
	err error
}

func (e *malformedError) Error() string { return e.err.Error() }
func (e *malformedError) Unwrap() error { return e.err }

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &malformedError{errors.New("request body is empty")}
		}
		return &malformedError{fmt.Errorf("invalid JSON: %w", err)}
	}
	return nil
}

// decodeTransaction reads a flat transaction record and builds the variant.
func decodeTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, error) {
	var rec core.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		return nil, err
	}
	tx, err := rec.Transaction()
	if err != nil {
		return nil, &core.ValidationError{Field: "type", Err: err}
	}
	return tx, nil
}
