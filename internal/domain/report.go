package domain

import "github.com/shopspring/decimal"

// ReportFilter narrows reporting queries. Zero values mean "no filter".
type ReportFilter struct {
	Year          int
	Month         int
	Quarter       int
	MarketID      int64
	SegmentID     int64
	CategoryID    int64
	SubcategoryID int64
	ProductID     int64
}

// QuarterMonths returns the calendar months of quarter q (1-4), or nil.
func QuarterMonths(q int) []int {
	if q < 1 || q > 4 {
		return nil
	}
	first := (q-1)*3 + 1
	return []int{first, first + 1, first + 2}
}

// Totals are the headline sums over order details.
type Totals struct {
	Sales    decimal.Decimal `json:"total_sales"`
	Profit   decimal.Decimal `json:"total_profit"`
	Quantity int64           `json:"total_quantity"`
}

// NamedAmount is a sum grouped by one dimension name.
type NamedAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// NamedCount is a row count grouped by one dimension name.
type NamedCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Bucket is a histogram bar: how many items share Value.
type Bucket struct {
	Value int   `json:"value"`
	Count int64 `json:"count"`
}

type YearQuantity struct {
	Year     int   `json:"year"`
	Quantity int64 `json:"total_quantity"`
}

type RegionMarketAmount struct {
	Region string          `json:"region"`
	Market string          `json:"market"`
	Amount decimal.Decimal `json:"amount"`
}

type MarketProductSales struct {
	Market  string          `json:"market"`
	Product string          `json:"product"`
	Sales   decimal.Decimal `json:"total_sales"`
}

// SalesProfit carries the sums needed to derive a margin.
type SalesProfit struct {
	Sales  decimal.Decimal `json:"total_sales"`
	Profit decimal.Decimal `json:"total_profit"`
}

type CustomerSales struct {
	CustomerID string `json:"customer_id"`
	SalesProfit
}

type ProductSales struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Product     string `json:"product"`
	SalesProfit
}

type CategorySales struct {
	Category    string          `json:"category"`
	AvgDiscount decimal.Decimal `json:"avg_discount"`
	SalesProfit
}

// PeriodSales is a sales sum for a month (1-12) or weekday (1=Sunday..7).
type PeriodSales struct {
	Period int             `json:"period"`
	Sales  decimal.Decimal `json:"total_sales"`
}

type MonthDaySales struct {
	Month int             `json:"month"`
	Day   int             `json:"day"`
	Sales decimal.Decimal `json:"total_sales"`
}

// Option is an id/name pair for filter dropdowns.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
