package localstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// Table models mirror the Postgres schema so both stores share table and
// column names. Composite natural keys use named unique indexes.

type region struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex"`
}

func (region) TableName() string { return "regions" }

type market struct {
	ID       int64  `gorm:"primaryKey"`
	Name     string `gorm:"not null;uniqueIndex"`
	RegionID int64  `gorm:"not null;index"`
	Region   region `gorm:"constraint:OnDelete:CASCADE"`
}

func (market) TableName() string { return "markets" }

type country struct {
	ID        int64    `gorm:"primaryKey"`
	Name      string   `gorm:"not null;uniqueIndex"`
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`
	MarketID  int64    `gorm:"not null;index"`
	Market    market   `gorm:"constraint:OnDelete:CASCADE"`
}

func (country) TableName() string { return "countries" }

type state struct {
	ID        int64   `gorm:"primaryKey"`
	Name      string  `gorm:"not null;uniqueIndex:idx_states_name_country,priority:1"`
	CountryID int64   `gorm:"not null;uniqueIndex:idx_states_name_country,priority:2"`
	Country   country `gorm:"constraint:OnDelete:CASCADE"`
}

func (state) TableName() string { return "states" }

type city struct {
	ID      int64  `gorm:"primaryKey"`
	Name    string `gorm:"not null;uniqueIndex:idx_cities_name_state,priority:1"`
	StateID int64  `gorm:"not null;uniqueIndex:idx_cities_name_state,priority:2"`
	State   state  `gorm:"constraint:OnDelete:CASCADE"`
}

func (city) TableName() string { return "cities" }

type segment struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex"`
}

func (segment) TableName() string { return "customer_segments" }

type customer struct {
	ID         int64   `gorm:"primaryKey"`
	CustomerID string  `gorm:"column:customer_id;not null;uniqueIndex"`
	SegmentID  int64   `gorm:"not null;index"`
	Segment    segment `gorm:"constraint:OnDelete:CASCADE"`
}

func (customer) TableName() string { return "customers" }

type category struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex"`
}

func (category) TableName() string { return "categories" }

type subcategory struct {
	ID         int64    `gorm:"primaryKey"`
	Name       string   `gorm:"not null;uniqueIndex:idx_subcategories_name_category,priority:1"`
	CategoryID int64    `gorm:"not null;uniqueIndex:idx_subcategories_name_category,priority:2"`
	Category   category `gorm:"constraint:OnDelete:CASCADE"`
}

func (subcategory) TableName() string { return "subcategories" }

type product struct {
	ID            int64       `gorm:"primaryKey"`
	Name          string      `gorm:"not null;uniqueIndex:idx_products_name_subcategory,priority:1"`
	SubcategoryID int64       `gorm:"not null;uniqueIndex:idx_products_name_subcategory,priority:2"`
	Subcategory   subcategory `gorm:"constraint:OnDelete:CASCADE"`
}

func (product) TableName() string { return "products" }

type order struct {
	ID         int64     `gorm:"primaryKey"`
	OrderID    string    `gorm:"column:order_id;not null;uniqueIndex"`
	OrderDate  time.Time `gorm:"type:date;not null"`
	CustomerID int64     `gorm:"column:customer_id;not null;index"`
	CityID     int64     `gorm:"not null;index"`
	Customer   customer  `gorm:"constraint:OnDelete:CASCADE"`
	City       city      `gorm:"constraint:OnDelete:CASCADE"`
}

func (order) TableName() string { return "orders" }

type orderDetail struct {
	ID        int64           `gorm:"primaryKey"`
	RowID     int64           `gorm:"column:row_id;not null;uniqueIndex"`
	OrderID   int64           `gorm:"column:order_id;not null;index"`
	ProductID int64           `gorm:"not null;index"`
	Quantity  int             `gorm:"not null"`
	Sales     decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Profit    decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Order     order           `gorm:"constraint:OnDelete:CASCADE"`
	Product   product         `gorm:"constraint:OnDelete:CASCADE"`
}

func (orderDetail) TableName() string { return "order_details" }

type importRun struct {
	ID              string    `gorm:"primaryKey"`
	FileName        string    `gorm:"not null"`
	Status          string    `gorm:"not null"`
	RowsRead        int       `gorm:"not null"`
	DetailsInserted int       `gorm:"not null"`
	RowsSkipped     int       `gorm:"not null"`
	Message         string    `gorm:"not null"`
	RemoteAddr      string    `gorm:"not null;default:''"`
	DurationMs      int64     `gorm:"column:duration_ms;not null"`
	CreatedAt       time.Time `gorm:"not null;index"`
}

func (importRun) TableName() string { return "import_runs" }

// allModels is the AutoMigrate order: parents before children.
var allModels = []any{
	&region{}, &market{}, &country{}, &state{}, &city{},
	&segment{}, &customer{},
	&category{}, &subcategory{}, &product{},
	&order{}, &orderDetail{},
	&importRun{},
}

func (m importRun) toDomain() domain.ImportRun {
	return domain.ImportRun{
		ID:              m.ID,
		FileName:        m.FileName,
		Status:          domain.ImportStatus(m.Status),
		RowsRead:        m.RowsRead,
		DetailsInserted: m.DetailsInserted,
		RowsSkipped:     m.RowsSkipped,
		Message:         m.Message,
		RemoteAddr:      m.RemoteAddr,
		Duration:        time.Duration(m.DurationMs) * time.Millisecond,
		CreatedAt:       m.CreatedAt,
	}
}
