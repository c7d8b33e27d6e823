package core

// convert.go turns raw sheet cells into typed values.
//
// Cells arrive from spreadsheets exported by hand, so the parsers accept:
//   - Multiple date formats (US, dotted EU, ISO, long month names)
//   - Excel serial day numbers and timestamps with a time of day
//   - Currency symbols, thousand separators and accounting parentheses
//   - Excel formula prefixes (="value")

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidNumber = errors.New("invalid number")
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// excelEpoch is day zero of the 1900 date system, shifted for the
// fictitious 1900-02-29.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxExcelSerial is 9999-12-31.
const maxExcelSerial = 2958465

// excelLeapBug is the serial of 1900-02-29, a day that never existed.
// Serials below it sit one day closer to the epoch.
const excelLeapBug = 60

// Date layouts split by year format for proper 2-digit year handling.
// Slashes and dashes are month-first, dots are day-first.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "01-02-06", "2.1.06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"2.1.2006", "02.01.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "02-Jan-2006",
		"20060102",
		"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05",
		time.RFC3339, "1/2/2006 15:04:05", "1/2/2006 15:04",
	}
)

// ParseDate converts a cell to a calendar date (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.CalendarDate(t), nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return domain.CalendarDate(t), nil
		}
	}

	if t, ok := excelSerialDate(s); ok {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// excelSerialDate interprets s as a spreadsheet day number. A fractional
// part is a time of day and is dropped.
func excelSerialDate(s string) (time.Time, bool) {
	if !numericRegex.MatchString(s) {
		return time.Time{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 || f > maxExcelSerial {
		return time.Time{}, false
	}
	day := int(math.Floor(f))
	switch {
	case day == excelLeapBug:
		return time.Time{}, false
	case day < excelLeapBug:
		day++
	}
	return excelEpoch.AddDate(0, 0, day), true
}

// ParseDecimal converts a cell to a decimal rounded to the money scale.
// Handles currency symbols, thousands separators, accounting format
// (parentheses for negative) and a trailing percent sign, which is read
// as a fraction ("10%" is 0.10).
func ParseDecimal(s string) (decimal.Decimal, error) {
	clean, percent, ok := cleanNumber(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if percent {
		d = d.Shift(-2)
	}
	return d.Round(domain.MoneyPlaces), nil
}

// ParseInt converts a cell to an integer. Fractional values are truncated
// toward zero, so "3.0" and "3.7" both read as 3.
func ParseInt(s string) (int64, error) {
	clean, percent, ok := cleanNumber(s)
	if !ok || percent {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	t := d.Truncate(0)
	if !t.IsInteger() || t.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || t.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidNumber, s)
	}
	return t.IntPart(), nil
}

// ParseCoordinate converts an optional latitude/longitude cell.
// A blank cell returns nil.
func ParseCoordinate(s string) (*float64, error) {
	s = CleanCell(s)
	if s == "" {
		return nil, nil
	}
	if !numericRegex.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return &f, nil
}

// cleanNumber strips formatting from a numeric cell. It reports whether the
// value carried a percent sign and whether the result is numeric at all.
func cleanNumber(s string) (clean string, percent bool, ok bool) {
	s = CleanCell(s)
	if s == "" {
		return "", false, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return "", false, false
	}
	return s, percent, true
}

// CleanCell removes common spreadsheet artifacts from a typed cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
