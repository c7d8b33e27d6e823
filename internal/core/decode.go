package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/JonMunkholm/salesdash/internal/schema"
)

// ErrRequiredField is returned when a typed fact cell is blank.
var ErrRequiredField = errors.New("required field is empty")

// FieldError pins a decode failure to a sheet line and column.
type FieldError struct {
	Line   int
	Column string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// columnIndex holds header positions for every known column; -1 marks an
// optional column the sheet does not carry.
type columnIndex map[string]int

func indexColumns(s *Sheet) (columnIndex, error) {
	if err := s.RequireColumns(schema.RequiredColumns()); err != nil {
		return nil, err
	}
	idx := make(columnIndex, len(schema.SalesFieldSpecs))
	for _, spec := range schema.SalesFieldSpecs {
		i, ok := s.Column(spec.Name)
		if !ok {
			i = -1
		}
		idx[spec.Name] = i
	}
	return idx, nil
}

// DecodeSheet validates the header and converts every row to a Record.
// The first bad cell aborts decoding so nothing is written for a sheet
// that does not fully parse.
func DecodeSheet(s *Sheet) ([]Record, error) {
	idx, err := indexColumns(s)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(s.Rows))
	for _, row := range s.Rows {
		rec, err := decodeRow(row, idx)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRow(row SheetRow, idx columnIndex) (Record, error) {
	text := func(col string) string { return row.Cell(idx[col]) }
	fail := func(col string, err error) (Record, error) {
		return Record{}, &FieldError{Line: row.Line, Column: col, Err: err}
	}

	rec := Record{
		Line:        row.Line,
		Region:      text(schema.ColRegion),
		Market:      text(schema.ColMarket),
		Country:     text(schema.ColCountry),
		State:       text(schema.ColState),
		City:        text(schema.ColCity),
		Segment:     text(schema.ColSegment),
		CustomerID:  text(schema.ColCustomerID),
		Category:    text(schema.ColCategory),
		Subcategory: text(schema.ColSubcategory),
		Product:     text(schema.ColProduct),
		OrderID:     text(schema.ColOrderID),
	}

	var err error
	if rec.Latitude, err = ParseCoordinate(text(schema.ColLatitude)); err != nil {
		return fail(schema.ColLatitude, err)
	}
	if rec.Longitude, err = ParseCoordinate(text(schema.ColLongitude)); err != nil {
		return fail(schema.ColLongitude, err)
	}

	// Typed fact columns must carry a value.
	for _, col := range []string{schema.ColRowID, schema.ColOrderDate, schema.ColQuantity, schema.ColSales, schema.ColDiscount, schema.ColProfit} {
		if CleanCell(text(col)) == "" {
			return fail(col, ErrRequiredField)
		}
	}

	if rec.RowID, err = ParseInt(text(schema.ColRowID)); err != nil {
		return fail(schema.ColRowID, err)
	}
	if rec.OrderDate, err = ParseDate(text(schema.ColOrderDate)); err != nil {
		return fail(schema.ColOrderDate, err)
	}
	qty, err := ParseInt(text(schema.ColQuantity))
	if err != nil {
		return fail(schema.ColQuantity, err)
	}
	if qty > math.MaxInt32 || qty < math.MinInt32 {
		return fail(schema.ColQuantity, fmt.Errorf("%w: %d out of range", ErrInvalidNumber, qty))
	}
	rec.Quantity = int(qty)
	if rec.Sales, err = ParseDecimal(text(schema.ColSales)); err != nil {
		return fail(schema.ColSales, err)
	}
	if rec.Discount, err = ParseDecimal(text(schema.ColDiscount)); err != nil {
		return fail(schema.ColDiscount, err)
	}
	if rec.Profit, err = ParseDecimal(text(schema.ColProfit)); err != nil {
		return fail(schema.ColProfit, err)
	}

	return rec, nil
}
