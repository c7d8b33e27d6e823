// Package domain holds the normalized sales schema shared by the import
// pipeline, the storage backends and the reporting layer.
//
// The dimension hierarchy is a strict tree per branch:
//
//	Region -> Market -> Country -> State -> City
//	CustomerSegment -> Customer
//	Category -> Subcategory -> Product
//
// Facts (Order, OrderDetail) reference the leaves of those trees. A row's
// parent reference is fixed when the row is created and never reassigned.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Region struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type Market struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	RegionID int64  `db:"region_id"`
}

// Country carries optional coordinates that are set only when the country
// is first created.
type Country struct {
	ID        int64    `db:"id"`
	Name      string   `db:"name"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	MarketID  int64    `db:"market_id"`
}

type State struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	CountryID int64  `db:"country_id"`
}

type City struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	StateID int64  `db:"state_id"`
}

type CustomerSegment struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Customer is keyed by the business CustomerID taken from the source sheet.
type Customer struct {
	ID         int64  `db:"id"`
	CustomerID string `db:"customer_id"`
	SegmentID  int64  `db:"segment_id"`
}

type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type Subcategory struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	CategoryID int64  `db:"category_id"`
}

type Product struct {
	ID            int64  `db:"id"`
	Name          string `db:"name"`
	SubcategoryID int64  `db:"subcategory_id"`
}

// Order is keyed by the business OrderID. CustomerID and CityID are
// surrogate references to Customer.ID and City.ID.
type Order struct {
	ID         int64     `db:"id"`
	OrderID    string    `db:"order_id"`
	OrderDate  time.Time `db:"order_date"`
	CustomerID int64     `db:"customer_id"`
	CityID     int64     `db:"city_id"`
}

// OrderDetail is one source line. RowID comes from the sheet and is the
// dedup key for detail rows; OrderID references Order.ID.
type OrderDetail struct {
	ID        int64           `db:"id"`
	RowID     int64           `db:"row_id"`
	OrderID   int64           `db:"order_id"`
	ProductID int64           `db:"product_id"`
	Quantity  int             `db:"quantity"`
	Sales     decimal.Decimal `db:"sales"`
	Discount  decimal.Decimal `db:"discount"`
	Profit    decimal.Decimal `db:"profit"`
}

// MoneyPlaces is the fixed-point scale of sales, discount and profit.
const MoneyPlaces = 2

// CalendarDate drops the time of day and location from t.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
