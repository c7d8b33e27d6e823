package localstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// tx implements domain.Tx on one gorm transaction.
type tx struct {
	db *gorm.DB
}

// getOrCreate inserts m unless its natural key exists, then loads the
// persisted row into m. The insert never overwrites an existing row.
func getOrCreate[M any](ctx context.Context, db *gorm.DB, m *M, query string, args ...any) error {
	res := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var existing M
	if err := db.WithContext(ctx).Where(query, args...).First(&existing).Error; err != nil {
		return translate(err)
	}
	*m = existing
	return nil
}

func (t *tx) GetOrCreateRegion(ctx context.Context, name string) (domain.Region, error) {
	m := region{Name: name}
	if err := getOrCreate(ctx, t.db, &m, "name = ?", name); err != nil {
		return domain.Region{}, fmt.Errorf("get or create region: %w", err)
	}
	return domain.Region{ID: m.ID, Name: m.Name}, nil
}

func (t *tx) GetOrCreateMarket(ctx context.Context, name string, regionID int64) (domain.Market, error) {
	m := market{Name: name, RegionID: regionID}
	if err := getOrCreate(ctx, t.db, &m, "name = ?", name); err != nil {
		return domain.Market{}, fmt.Errorf("get or create market: %w", err)
	}
	return domain.Market{ID: m.ID, Name: m.Name, RegionID: m.RegionID}, nil
}

func (t *tx) GetOrCreateCountry(ctx context.Context, c domain.Country) (domain.Country, error) {
	m := country{Name: c.Name, Latitude: c.Latitude, Longitude: c.Longitude, MarketID: c.MarketID}
	if err := getOrCreate(ctx, t.db, &m, "name = ?", c.Name); err != nil {
		return domain.Country{}, fmt.Errorf("get or create country: %w", err)
	}
	return domain.Country{ID: m.ID, Name: m.Name, Latitude: m.Latitude, Longitude: m.Longitude, MarketID: m.MarketID}, nil
}

func (t *tx) FindMarket(ctx context.Context, name string) (domain.Market, error) {
	var m market
	if err := t.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		return domain.Market{}, fmt.Errorf("find market: %w", translate(err))
	}
	return domain.Market{ID: m.ID, Name: m.Name, RegionID: m.RegionID}, nil
}

func (t *tx) FindCountry(ctx context.Context, name string) (domain.Country, error) {
	var m country
	if err := t.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		return domain.Country{}, fmt.Errorf("find country: %w", translate(err))
	}
	return domain.Country{ID: m.ID, Name: m.Name, Latitude: m.Latitude, Longitude: m.Longitude, MarketID: m.MarketID}, nil
}

func (t *tx) GetOrCreateState(ctx context.Context, name string, countryID int64) (domain.State, error) {
	m := state{Name: name, CountryID: countryID}
	if err := getOrCreate(ctx, t.db, &m, "name = ? AND country_id = ?", name, countryID); err != nil {
		return domain.State{}, fmt.Errorf("get or create state: %w", err)
	}
	return domain.State{ID: m.ID, Name: m.Name, CountryID: m.CountryID}, nil
}

func (t *tx) GetOrCreateCity(ctx context.Context, name string, stateID int64) (domain.City, error) {
	m := city{Name: name, StateID: stateID}
	if err := getOrCreate(ctx, t.db, &m, "name = ? AND state_id = ?", name, stateID); err != nil {
		return domain.City{}, fmt.Errorf("get or create city: %w", err)
	}
	return domain.City{ID: m.ID, Name: m.Name, StateID: m.StateID}, nil
}

func (t *tx) GetOrCreateSegment(ctx context.Context, name string) (domain.CustomerSegment, error) {
	m := segment{Name: name}
	if err := getOrCreate(ctx, t.db, &m, "name = ?", name); err != nil {
		return domain.CustomerSegment{}, fmt.Errorf("get or create segment: %w", err)
	}
	return domain.CustomerSegment{ID: m.ID, Name: m.Name}, nil
}

func (t *tx) GetOrCreateCustomer(ctx context.Context, customerID string, segmentID int64) (domain.Customer, error) {
	m := customer{CustomerID: customerID, SegmentID: segmentID}
	if err := getOrCreate(ctx, t.db, &m, "customer_id = ?", customerID); err != nil {
		return domain.Customer{}, fmt.Errorf("get or create customer: %w", err)
	}
	return domain.Customer{ID: m.ID, CustomerID: m.CustomerID, SegmentID: m.SegmentID}, nil
}

func (t *tx) GetOrCreateCategory(ctx context.Context, name string) (domain.Category, error) {
	m := category{Name: name}
	if err := getOrCreate(ctx, t.db, &m, "name = ?", name); err != nil {
		return domain.Category{}, fmt.Errorf("get or create category: %w", err)
	}
	return domain.Category{ID: m.ID, Name: m.Name}, nil
}

func (t *tx) GetOrCreateSubcategory(ctx context.Context, name string, categoryID int64) (domain.Subcategory, error) {
	m := subcategory{Name: name, CategoryID: categoryID}
	if err := getOrCreate(ctx, t.db, &m, "name = ? AND category_id = ?", name, categoryID); err != nil {
		return domain.Subcategory{}, fmt.Errorf("get or create subcategory: %w", err)
	}
	return domain.Subcategory{ID: m.ID, Name: m.Name, CategoryID: m.CategoryID}, nil
}

func (t *tx) GetOrCreateProduct(ctx context.Context, name string, subcategoryID int64) (domain.Product, error) {
	m := product{Name: name, SubcategoryID: subcategoryID}
	if err := getOrCreate(ctx, t.db, &m, "name = ? AND subcategory_id = ?", name, subcategoryID); err != nil {
		return domain.Product{}, fmt.Errorf("get or create product: %w", err)
	}
	return domain.Product{ID: m.ID, Name: m.Name, SubcategoryID: m.SubcategoryID}, nil
}

func (t *tx) GetOrCreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	m := order{
		OrderID:    o.OrderID,
		OrderDate:  domain.CalendarDate(o.OrderDate),
		CustomerID: o.CustomerID,
		CityID:     o.CityID,
	}
	if err := getOrCreate(ctx, t.db, &m, "order_id = ?", o.OrderID); err != nil {
		return domain.Order{}, fmt.Errorf("get or create order: %w", err)
	}
	return domain.Order{
		ID:         m.ID,
		OrderID:    m.OrderID,
		OrderDate:  domain.CalendarDate(m.OrderDate),
		CustomerID: m.CustomerID,
		CityID:     m.CityID,
	}, nil
}

func (t *tx) InsertOrderDetail(ctx context.Context, d domain.OrderDetail) (domain.OrderDetail, error) {
	m := orderDetail{
		RowID:     d.RowID,
		OrderID:   d.OrderID,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		Sales:     d.Sales.Round(domain.MoneyPlaces),
		Discount:  d.Discount.Round(domain.MoneyPlaces),
		Profit:    d.Profit.Round(domain.MoneyPlaces),
	}
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return domain.OrderDetail{}, fmt.Errorf("insert order detail row %d: %w", d.RowID, translate(err))
	}
	d.ID = m.ID
	return d, nil
}
