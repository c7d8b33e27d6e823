package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrMissingColumn is returned when the header row lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyFile is returned when a sheet has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrUnsupportedFormat is returned for workbook formats that cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SheetRow is one data row and its 1-based position in the source sheet.
type SheetRow struct {
	Line  int
	Cells []string
}

// Sheet is a parsed worksheet: a header and the non-blank rows below it.
type Sheet struct {
	Header []string
	Rows   []SheetRow

	index map[string]int
}

// Column returns the position of a header, matched exactly after trimming.
func (s *Sheet) Column(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Cell returns the trimmed value at column i, or "" for short rows.
func (r SheetRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

// ReadSheet parses a CSV or XLSX file. The format is picked from the file
// extension; anything that is not a workbook is read as CSV.
func ReadSheet(fileName string, r io.Reader) (*Sheet, error) {
	var (
		records []SheetRow
		err     error
	)

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(r)
	case ".xls":
		return nil, fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx", ErrUnsupportedFormat)
	default:
		records, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}

	return newSheet(records)
}

func newSheet(records []SheetRow) (*Sheet, error) {
	headerAt := -1
	for i, rec := range records {
		if !isEmptyRow(rec.Cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmptyFile
	}

	s := &Sheet{
		Header: records[headerAt].Cells,
		index:  make(map[string]int, len(records[headerAt].Cells)),
	}
	for i, h := range s.Header {
		name := strings.TrimSpace(strings.TrimPrefix(h, string(utf8BOM)))
		if _, dup := s.index[name]; !dup && name != "" {
			s.index[name] = i
		}
	}

	for _, rec := range records[headerAt+1:] {
		if !isEmptyRow(rec.Cells) {
			s.Rows = append(s.Rows, rec)
		}
	}
	return s, nil
}

// RequireColumns reports every missing header in one error.
func (s *Sheet) RequireColumns(names []string) error {
	var missing []string
	for _, n := range names {
		if _, ok := s.index[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// readCSV keeps each record's starting line so errors point at the right
// place even when quoted cells span lines.
func readCSV(r io.Reader) ([]SheetRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	data = sanitizeUTF8(data)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows []SheetRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, SheetRow{Line: line, Cells: rec})
	}
	return rows, nil
}

// readWorkbook returns the rows of the first worksheet. Raw cell values are
// used so dates arrive as serial numbers rather than locale-formatted text.
func readWorkbook(r io.Reader) ([]SheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	cells, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheets[0], err)
	}
	rows := make([]SheetRow, len(cells))
	for i, c := range cells {
		rows[i] = SheetRow{Line: i + 1, Cells: c}
	}
	return rows, nil
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
