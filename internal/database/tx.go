package database

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// tx implements domain.Tx on a pgx transaction.
type tx struct {
	q querier
}

// getOrCreate inserts with ON CONFLICT DO NOTHING and scans the RETURNING
// columns. When the natural key already exists nothing is returned, so the
// persisted row is read back with sel instead.
func (t *tx) getOrCreate(ctx context.Context, ins sq.InsertBuilder, sel sq.SelectBuilder, dest ...any) error {
	err := get(ctx, t.q, ins, dest...)
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return get(ctx, t.q, sel, dest...)
}

func (t *tx) GetOrCreateRegion(ctx context.Context, name string) (domain.Region, error) {
	var r domain.Region
	ins := builder().Insert(tableRegions).
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING RETURNING id, name")
	sel := builder().Select("id", "name").
		From(tableRegions).
		Where(sq.Eq{"name": name})

	if err := t.getOrCreate(ctx, ins, sel, &r.ID, &r.Name); err != nil {
		return domain.Region{}, fmt.Errorf("get or create region: %w", err)
	}
	return r, nil
}

func (t *tx) GetOrCreateMarket(ctx context.Context, name string, regionID int64) (domain.Market, error) {
	var m domain.Market
	ins := builder().Insert(tableMarkets).
		Columns("name", "region_id").
		Values(name, regionID).
		Suffix("ON CONFLICT (name) DO NOTHING RETURNING id, name, region_id")
	sel := builder().Select("id", "name", "region_id").
		From(tableMarkets).
		Where(sq.Eq{"name": name})

	if err := t.getOrCreate(ctx, ins, sel, &m.ID, &m.Name, &m.RegionID); err != nil {
		return domain.Market{}, fmt.Errorf("get or create market: %w", err)
	}
	return m, nil
}

func (t *tx) GetOrCreateCountry(ctx context.Context, c domain.Country) (domain.Country, error) {
	var out domain.Country
	ins := builder().Insert(tableCountries).
		Columns("name", "latitude", "longitude", "market_id").
		Values(c.Name, c.Latitude, c.Longitude, c.MarketID).
		Suffix("ON CONFLICT (name) DO NOTHING RETURNING id, name, latitude, longitude, market_id")
	sel := builder().Select("id", "name", "latitude", "longitude", "market_id").
		From(tableCountries).
		Where(sq.Eq{"name": c.Name})

	err := t.getOrCreate(ctx, ins, sel, &out.ID, &out.Name, &out.Latitude, &out.Longitude, &out.MarketID)
	if err != nil {
		return domain.Country{}, fmt.Errorf("get or create country: %w", err)
	}
	return out, nil
}

func (t *tx) FindMarket(ctx context.Context, name string) (domain.Market, error) {
	var m domain.Market
	sel := builder().Select("id", "name", "region_id").
		From(tableMarkets).
		Where(sq.Eq{"name": name})

	if err := get(ctx, t.q, sel, &m.ID, &m.Name, &m.RegionID); err != nil {
		return domain.Market{}, fmt.Errorf("find market: %w", err)
	}
	return m, nil
}

func (t *tx) FindCountry(ctx context.Context, name string) (domain.Country, error) {
	var c domain.Country
	sel := builder().Select("id", "name", "latitude", "longitude", "market_id").
		From(tableCountries).
		Where(sq.Eq{"name": name})

	if err := get(ctx, t.q, sel, &c.ID, &c.Name, &c.Latitude, &c.Longitude, &c.MarketID); err != nil {
		return domain.Country{}, fmt.Errorf("find country: %w", err)
	}
	return c, nil
}

func (t *tx) GetOrCreateState(ctx context.Context, name string, countryID int64) (domain.State, error) {
	var s domain.State
	ins := builder().Insert(tableStates).
		Columns("name", "country_id").
		Values(name, countryID).
		Suffix("ON CONFLICT (name, country_id) DO NOTHING RETURNING id, name, country_id")
	sel := builder().Select("id", "name", "country_id").
		From(tableStates).
		Where(sq.Eq{"name": name, "country_id": countryID})

	if err := t.getOrCreate(ctx, ins, sel, &s.ID, &s.Name, &s.CountryID); err != nil {
		return domain.State{}, fmt.Errorf("get or create state: %w", err)
	}
	return s, nil
}

func (t *tx) GetOrCreateCity(ctx context.Context, name string, stateID int64) (domain.City, error) {
	var c domain.City
	ins := builder().Insert(tableCities).
		Columns("name", "state_id").
		Values(name, stateID).
		Suffix("ON CONFLICT (name, state_id) DO NOTHING RETURNING id, name, state_id")
	sel := builder().Select("id", "name", "state_id").
		From(tableCities).
		Where(sq.Eq{"name": name, "state_id": stateID})

	if err := t.getOrCreate(ctx, ins, sel, &c.ID, &c.Name, &c.StateID); err != nil {
		return domain.City{}, fmt.Errorf("get or create city: %w", err)
	}
	return c, nil
}

func (t *tx) GetOrCreateSegment(ctx context.Context, name string) (domain.CustomerSegment, error) {
	var s domain.CustomerSegment
	ins := builder().Insert(tableSegments).
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING RETURNING id, name")
	sel := builder().Select("id", "name").
		From(tableSegments).
		Where(sq.Eq{"name": name})

	if err := t.getOrCreate(ctx, ins, sel, &s.ID, &s.Name); err != nil {
		return domain.CustomerSegment{}, fmt.Errorf("get or create segment: %w", err)
	}
	return s, nil
}

func (t *tx) GetOrCreateCustomer(ctx context.Context, customerID string, segmentID int64) (domain.Customer, error) {
	var c domain.Customer
	ins := builder().Insert(tableCustomers).
		Columns("customer_id", "segment_id").
		Values(customerID, segmentID).
		Suffix("ON CONFLICT (customer_id) DO NOTHING RETURNING id, customer_id, segment_id")
	sel := builder().Select("id", "customer_id", "segment_id").
		From(tableCustomers).
		Where(sq.Eq{"customer_id": customerID})

	if err := t.getOrCreate(ctx, ins, sel, &c.ID, &c.CustomerID, &c.SegmentID); err != nil {
		return domain.Customer{}, fmt.Errorf("get or create customer: %w", err)
	}
	return c, nil
}

func (t *tx) GetOrCreateCategory(ctx context.Context, name string) (domain.Category, error) {
	var c domain.Category
	ins := builder().Insert(tableCategories).
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING RETURNING id, name")
	sel := builder().Select("id", "name").
		From(tableCategories).
		Where(sq.Eq{"name": name})

	if err := t.getOrCreate(ctx, ins, sel, &c.ID, &c.Name); err != nil {
		return domain.Category{}, fmt.Errorf("get or create category: %w", err)
	}
	return c, nil
}

func (t *tx) GetOrCreateSubcategory(ctx context.Context, name string, categoryID int64) (domain.Subcategory, error) {
	var s domain.Subcategory
	ins := builder().Insert(tableSubcategories).
		Columns("name", "category_id").
		Values(name, categoryID).
		Suffix("ON CONFLICT (name, category_id) DO NOTHING RETURNING id, name, category_id")
	sel := builder().Select("id", "name", "category_id").
		From(tableSubcategories).
		Where(sq.Eq{"name": name, "category_id": categoryID})

	if err := t.getOrCreate(ctx, ins, sel, &s.ID, &s.Name, &s.CategoryID); err != nil {
		return domain.Subcategory{}, fmt.Errorf("get or create subcategory: %w", err)
	}
	return s, nil
}

func (t *tx) GetOrCreateProduct(ctx context.Context, name string, subcategoryID int64) (domain.Product, error) {
	var p domain.Product
	ins := builder().Insert(tableProducts).
		Columns("name", "subcategory_id").
		Values(name, subcategoryID).
		Suffix("ON CONFLICT (name, subcategory_id) DO NOTHING RETURNING id, name, subcategory_id")
	sel := builder().Select("id", "name", "subcategory_id").
		From(tableProducts).
		Where(sq.Eq{"name": name, "subcategory_id": subcategoryID})

	if err := t.getOrCreate(ctx, ins, sel, &p.ID, &p.Name, &p.SubcategoryID); err != nil {
		return domain.Product{}, fmt.Errorf("get or create product: %w", err)
	}
	return p, nil
}

func (t *tx) GetOrCreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	var out domain.Order
	ins := builder().Insert(tableOrders).
		Columns("order_id", "order_date", "customer_id", "city_id").
		Values(o.OrderID, domain.CalendarDate(o.OrderDate), o.CustomerID, o.CityID).
		Suffix("ON CONFLICT (order_id) DO NOTHING RETURNING id, order_id, order_date, customer_id, city_id")
	sel := builder().Select("id", "order_id", "order_date", "customer_id", "city_id").
		From(tableOrders).
		Where(sq.Eq{"order_id": o.OrderID})

	err := t.getOrCreate(ctx, ins, sel, &out.ID, &out.OrderID, &out.OrderDate, &out.CustomerID, &out.CityID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get or create order: %w", err)
	}
	out.OrderDate = domain.CalendarDate(out.OrderDate)
	return out, nil
}

func (t *tx) InsertOrderDetail(ctx context.Context, d domain.OrderDetail) (domain.OrderDetail, error) {
	d.Sales = d.Sales.Round(domain.MoneyPlaces)
	d.Discount = d.Discount.Round(domain.MoneyPlaces)
	d.Profit = d.Profit.Round(domain.MoneyPlaces)

	ins := builder().Insert(tableOrderDetails).
		Columns("row_id", "order_id", "product_id", "quantity", "sales", "discount", "profit").
		Values(d.RowID, d.OrderID, d.ProductID, d.Quantity, d.Sales, d.Discount, d.Profit).
		Suffix("RETURNING id")

	if err := get(ctx, t.q, ins, &d.ID); err != nil {
		return domain.OrderDetail{}, fmt.Errorf("insert order detail row %d: %w", d.RowID, err)
	}
	return d, nil
}
