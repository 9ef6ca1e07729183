// Package sheet reads the orders spreadsheet exported as CSV.
//
// Columns, left to right: row id, order number, cost in USD, delivery date.
// Extra columns are ignored. Costs accept a comma as the decimal separator;
// dates are DD.MM.YYYY or YYYY-MM-DD. Rows above the first data row are
// headers.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/orders-dashboard/internal/orderstore"
)

// minColumns is the number of columns a data row must have.
const minColumns = 4

var dateLayouts = []string{"02.01.2006", "2006-01-02"}

// maxCostUSD is the first value NUMERIC(8,2) cannot hold.
var maxCostUSD = decimal.NewFromInt(1_000_000)

// RowError describes one data row that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Document is one read of the sheet.
type Document struct {
	ModTime time.Time
	Records []orderstore.Record
	Errors  []*RowError
}

// ModTime returns the file's modification time.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat orders sheet: %w", err)
	}
	return info.ModTime(), nil
}

// ReadFile parses the sheet at path.
func ReadFile(path string, firstDataRow int) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open orders sheet: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Document{}, fmt.Errorf("stat orders sheet: %w", err)
	}

	records, rowErrs, err := Parse(f, firstDataRow)
	if err != nil {
		return Document{}, err
	}

	return Document{
		ModTime: info.ModTime(),
		Records: records,
		Errors:  rowErrs,
	}, nil
}

// Parse reads CSV rows starting at the 1-based line firstDataRow. Bad rows are
// reported in the second result and skipped; a malformed CSV stream fails the
// whole read. The first row seen for an id wins.
func Parse(r io.Reader, firstDataRow int) ([]orderstore.Record, []*RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records := []orderstore.Record{}
	var rowErrs []*RowError
	seen := make(map[int64]int)

	for first := true; ; first = false {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read orders sheet: %w", err)
		}
		if first && len(fields) > 0 {
			fields[0] = strings.TrimPrefix(fields[0], "\ufeff")
		}

		line, _ := cr.FieldPos(0)
		if line < firstDataRow || blank(fields) {
			continue
		}

		rec, err := parseRow(fields)
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Line: line, Err: err})
			continue
		}
		if prev, dup := seen[rec.ID]; dup {
			rowErrs = append(rowErrs, &RowError{Line: line, Err: fmt.Errorf("duplicate id %d (first on line %d)", rec.ID, prev)})
			continue
		}
		seen[rec.ID] = line
		records = append(records, rec)
	}

	return records, rowErrs, nil
}

func parseRow(fields []string) (orderstore.Record, error) {
	if len(fields) < minColumns {
		return orderstore.Record{}, fmt.Errorf("expected %d columns, got %d", minColumns, len(fields))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil || id <= 0 {
		return orderstore.Record{}, fmt.Errorf("invalid id %q", fields[0])
	}

	orderNumber, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil || orderNumber < 0 {
		return orderstore.Record{}, fmt.Errorf("invalid order number %q", fields[1])
	}

	cost, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(fields[2]), ",", "."))
	if err != nil {
		return orderstore.Record{}, fmt.Errorf("invalid cost %q", fields[2])
	}
	cost = cost.Round(2)
	if cost.Abs().GreaterThanOrEqual(maxCostUSD) {
		return orderstore.Record{}, fmt.Errorf("cost %s out of range", cost)
	}

	delivery, err := parseDate(strings.TrimSpace(fields[3]))
	if err != nil {
		return orderstore.Record{}, fmt.Errorf("invalid delivery date %q", fields[3])
	}

	return orderstore.Record{
		ID:           id,
		OrderNumber:  orderNumber,
		CostUSD:      cost,
		DeliveryDate: delivery,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
