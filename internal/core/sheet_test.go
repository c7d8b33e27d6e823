package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadSheet_CSV(t *testing.T) {
	input := "\xEF\xBB\xBF\n" +
		" Region ,Market,Sales\n" +
		"Central,US,10\n" +
		",,\n" +
		"East,EU\n"

	s, err := ReadSheet("orders.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}

	if i, ok := s.Column("Region"); !ok || i != 0 {
		t.Errorf("Column(Region) = %d, %v; want 0, true", i, ok)
	}
	if _, ok := s.Column("region"); ok {
		t.Error("header match should be case-sensitive")
	}

	if len(s.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (blank row dropped)", len(s.Rows))
	}
	if s.Rows[0].Line != 3 || s.Rows[1].Line != 5 {
		t.Errorf("lines = %d, %d; want 3, 5", s.Rows[0].Line, s.Rows[1].Line)
	}

	sales, _ := s.Column("Sales")
	if got := s.Rows[1].Cell(sales); got != "" {
		t.Errorf("short row cell = %q, want empty", got)
	}
}

func TestReadSheet_InvalidUTF8(t *testing.T) {
	input := "Region\nCaf\xe9\n"
	s, err := ReadSheet("x.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if got := s.Rows[0].Cell(0); got != "Caf�" {
		t.Errorf("cell = %q, want replacement character", got)
	}
}

func TestReadSheet_Empty(t *testing.T) {
	_, err := ReadSheet("empty.csv", strings.NewReader("\n , \n"))
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}

func TestReadSheet_LegacyWorkbook(t *testing.T) {
	_, err := ReadSheet("orders.XLS", strings.NewReader("binary"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestReadSheet_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Region", "Order Date", "Sales"},
		{"Central", 45306, 12.5},
		{},
		{"West", "2024-02-01", 3},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	s, err := ReadSheet("orders.xlsx", bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if len(s.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(s.Rows))
	}
	date, _ := s.Column("Order Date")
	got, err := ParseDate(s.Rows[0].Cell(date))
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s.Rows[0].Cell(date), err)
	}
	if got.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("serial date = %s, want 2024-01-15", got.Format("2006-01-02"))
	}
	if s.Rows[1].Line != 4 {
		t.Errorf("line = %d, want 4", s.Rows[1].Line)
	}
}

func TestRequireColumns(t *testing.T) {
	s, err := ReadSheet("x.csv", strings.NewReader("Region,Market\n"))
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	err = s.RequireColumns([]string{"Region", "Market", "Profit", "Sales"})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
	if !strings.Contains(err.Error(), "Profit, Sales") {
		t.Errorf("err = %q, want both missing columns named", err)
	}
}
