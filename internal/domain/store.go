package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned when an insert violates a uniqueness rule
	// that get-or-create does not absorb, e.g. a repeated OrderDetail row_id.
	ErrDuplicate = errors.New("duplicate key")

	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("not found")
)

// Tx is the write view of one import's unit of work. Every GetOrCreate
// method inserts the row if its natural key is free and otherwise returns
// the persisted row unchanged, so the first writer's attributes win.
type Tx interface {
	GetOrCreateRegion(ctx context.Context, name string) (Region, error)
	GetOrCreateMarket(ctx context.Context, name string, regionID int64) (Market, error)
	GetOrCreateCountry(ctx context.Context, c Country) (Country, error)
	GetOrCreateState(ctx context.Context, name string, countryID int64) (State, error)
	GetOrCreateCity(ctx context.Context, name string, stateID int64) (City, error)

	// FindMarket and FindCountry look up an existing row by name without
	// creating one. A missing row is ErrNotFound.
	FindMarket(ctx context.Context, name string) (Market, error)
	FindCountry(ctx context.Context, name string) (Country, error)

	GetOrCreateSegment(ctx context.Context, name string) (CustomerSegment, error)
	GetOrCreateCustomer(ctx context.Context, customerID string, segmentID int64) (Customer, error)

	GetOrCreateCategory(ctx context.Context, name string) (Category, error)
	GetOrCreateSubcategory(ctx context.Context, name string, categoryID int64) (Subcategory, error)
	GetOrCreateProduct(ctx context.Context, name string, subcategoryID int64) (Product, error)

	GetOrCreateOrder(ctx context.Context, o Order) (Order, error)

	// InsertOrderDetail always inserts. A row_id that already exists fails
	// with ErrDuplicate.
	InsertOrderDetail(ctx context.Context, d OrderDetail) (OrderDetail, error)
}

// Store runs units of work against a backend.
type Store interface {
	// InTx runs fn inside one transaction. The transaction commits only if
	// fn returns nil; any error rolls back every write made through tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Counts returns the committed row count of every entity table.
	Counts(ctx context.Context) (Counts, error)
}

// ImportHistory persists one record per import attempt, independent of the
// import's own transaction.
type ImportHistory interface {
	RecordImport(ctx context.Context, run ImportRun) error
	ListImports(ctx context.Context, limit int) ([]ImportRun, error)
}

// Counts holds row counts per entity table.
type Counts struct {
	Regions       int64 `json:"regions"`
	Markets       int64 `json:"markets"`
	Countries     int64 `json:"countries"`
	States        int64 `json:"states"`
	Cities        int64 `json:"cities"`
	Segments      int64 `json:"segments"`
	Customers     int64 `json:"customers"`
	Categories    int64 `json:"categories"`
	Subcategories int64 `json:"subcategories"`
	Products      int64 `json:"products"`
	Orders        int64 `json:"orders"`
	OrderDetails  int64 `json:"order_details"`
}

// TableCount is one entry of Counts.Tables.
type TableCount struct {
	Table string
	Rows  int64
}

// Tables lists the counts in hierarchy order using the storage table names.
func (c Counts) Tables() []TableCount {
	return []TableCount{
		{"regions", c.Regions},
		{"markets", c.Markets},
		{"countries", c.Countries},
		{"states", c.States},
		{"cities", c.Cities},
		{"customer_segments", c.Segments},
		{"customers", c.Customers},
		{"categories", c.Categories},
		{"subcategories", c.Subcategories},
		{"products", c.Products},
		{"orders", c.Orders},
		{"order_details", c.OrderDetails},
	}
}

// ImportStatus is the terminal state of an import attempt.
type ImportStatus string

const (
	ImportSucceeded ImportStatus = "succeeded"
	ImportFailed    ImportStatus = "failed"
)

// ImportRun is the history record of one import attempt.
type ImportRun struct {
	ID              string        `json:"id"`
	FileName        string        `json:"file_name"`
	Status          ImportStatus  `json:"status"`
	RowsRead        int           `json:"rows_read"`
	DetailsInserted int           `json:"details_inserted"`
	RowsSkipped     int           `json:"rows_skipped"`
	Message         string        `json:"message"`
	RemoteAddr      string        `json:"remote_addr,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
	CreatedAt       time.Time     `json:"created_at"`
}
