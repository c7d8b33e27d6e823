package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// Record is one decoded sheet row. Dimension fields are trimmed text where
// "" means absent; fact fields are already typed.
type Record struct {
	Line int

	Region    string
	Market    string
	Country   string
	Latitude  *float64
	Longitude *float64
	State     string
	City      string

	Segment    string
	CustomerID string

	Category    string
	Subcategory string
	Product     string

	RowID     int64
	OrderID   string
	OrderDate time.Time
	Quantity  int
	Sales     decimal.Decimal
	Discount  decimal.Decimal
	Profit    decimal.Decimal
}

func (r Record) CityKey() domain.CityKey {
	return domain.CityKey{Country: r.Country, State: r.State, City: r.City}
}

func (r Record) ProductKey() domain.ProductKey {
	return domain.ProductKey{Category: r.Category, Subcategory: r.Subcategory, Product: r.Product}
}

// SkipReason explains why a row produced no order detail.
type SkipReason string

const (
	SkipNoMarket   SkipReason = "market"
	SkipNoCity     SkipReason = "city"
	SkipNoProduct  SkipReason = "product"
	SkipNoCustomer SkipReason = "customer"
	SkipNoOrderID  SkipReason = "order id"
)

// LoadStats summarizes the fact loading stage.
type LoadStats struct {
	DetailsInserted int                `json:"details_inserted"`
	Orders          int                `json:"orders"`
	RowsSkipped     int                `json:"rows_skipped"`
	SkippedLines    []int              `json:"skipped_lines,omitempty"`
	SkippedBy       map[SkipReason]int `json:"skipped_by,omitempty"`
}

// Result is the outcome of one import call.
type Result struct {
	RunID    string        `json:"run_id"`
	FileName string        `json:"file_name"`
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	RowsRead int           `json:"rows_read"`
	Duration time.Duration `json:"duration_ns"`

	LoadStats

	// Err is the underlying failure, nil on success.
	Err error `json:"-"`
	// UserError is the mapped form of Err for display.
	UserError *UserError `json:"-"`
}

// Outcome returns the two-part (success, message) result.
func (r *Result) Outcome() (bool, string) {
	return r.Success, r.Message
}

func successMessage(stats LoadStats) string {
	msg := fmt.Sprintf("Data imported successfully: %d order lines across %d orders", stats.DetailsInserted, stats.Orders)
	if stats.RowsSkipped > 0 {
		msg += fmt.Sprintf("; %d rows skipped for missing market, city, product, customer or order id", stats.RowsSkipped)
	}
	return msg
}
