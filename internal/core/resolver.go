package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// Dimensions maps natural keys to the persisted dimension rows of one
// import. It is built fresh per call and dropped when the call returns.
type Dimensions struct {
	Regions       map[string]domain.Region
	Markets       map[string]domain.Market
	Countries     map[string]domain.Country
	States        map[domain.StateKey]domain.State
	Cities        map[domain.CityKey]domain.City
	Segments      map[string]domain.CustomerSegment
	Customers     map[string]domain.Customer
	Categories    map[string]domain.Category
	Subcategories map[domain.SubcategoryKey]domain.Subcategory
	Products      map[domain.ProductKey]domain.Product

	// Unplaced holds countries that were neither stored nor creatable
	// because their rows named no resolvable market.
	Unplaced map[string]struct{}
}

func newDimensions() *Dimensions {
	return &Dimensions{
		Regions:       make(map[string]domain.Region),
		Markets:       make(map[string]domain.Market),
		Countries:     make(map[string]domain.Country),
		States:        make(map[domain.StateKey]domain.State),
		Cities:        make(map[domain.CityKey]domain.City),
		Segments:      make(map[string]domain.CustomerSegment),
		Customers:     make(map[string]domain.Customer),
		Categories:    make(map[string]domain.Category),
		Subcategories: make(map[domain.SubcategoryKey]domain.Subcategory),
		Products:      make(map[domain.ProductKey]domain.Product),
		Unplaced:      make(map[string]struct{}),
	}
}

// ResolveDimensions materializes every dimension referenced by records,
// reusing rows that already exist. Stages run in dependency order: markets
// before countries, since a country is created under its row's market.
func ResolveDimensions(ctx context.Context, tx domain.Tx, records []Record) (*Dimensions, error) {
	d := newDimensions()

	stages := []struct {
		name string
		run  func(context.Context, domain.Tx, []Record) error
	}{
		{"markets", d.resolveMarkets},
		{"locations", d.resolveLocations},
		{"customers", d.resolveCustomers},
		{"products", d.resolveProducts},
	}
	for _, st := range stages {
		if err := st.run(ctx, tx, records); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", st.name, err)
		}
	}
	return d, nil
}

// distinct returns the first record for each key, in first-appearance order.
func distinct[K comparable](records []Record, key func(Record) K) []Record {
	seen := make(map[K]struct{}, len(records))
	var out []Record
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// resolveMarkets creates each region and market pair. A market listed
// without a region can only reuse a market that is already stored.
func (d *Dimensions) resolveMarkets(ctx context.Context, tx domain.Tx, records []Record) error {
	type pair struct{ region, market string }
	for _, r := range distinct(records, func(r Record) pair { return pair{r.Region, r.Market} }) {
		if r.Market == "" {
			continue
		}
		if _, ok := d.Markets[r.Market]; ok {
			continue
		}

		if r.Region == "" {
			market, err := tx.FindMarket(ctx, r.Market)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("market %q: %w", r.Market, err)
			}
			d.Markets[r.Market] = market
			continue
		}

		region, ok := d.Regions[r.Region]
		if !ok {
			var err error
			if region, err = tx.GetOrCreateRegion(ctx, r.Region); err != nil {
				return fmt.Errorf("region %q: %w", r.Region, err)
			}
			d.Regions[r.Region] = region
		}
		market, err := tx.GetOrCreateMarket(ctx, r.Market, region.ID)
		if err != nil {
			return fmt.Errorf("market %q: %w", r.Market, err)
		}
		d.Markets[r.Market] = market
	}
	return nil
}

// country returns the row's country, creating it under the row's market.
// Without a resolved market only an already stored country can be used;
// ok is false when there is none.
func (d *Dimensions) country(ctx context.Context, tx domain.Tx, r Record) (domain.Country, bool, error) {
	if c, ok := d.Countries[r.Country]; ok {
		return c, true, nil
	}

	var (
		c   domain.Country
		err error
	)
	if market, ok := d.Markets[r.Market]; ok {
		c, err = tx.GetOrCreateCountry(ctx, domain.Country{
			Name:      r.Country,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			MarketID:  market.ID,
		})
	} else {
		c, err = tx.FindCountry(ctx, r.Country)
		if errors.Is(err, domain.ErrNotFound) {
			d.Unplaced[r.Country] = struct{}{}
			return domain.Country{}, false, nil
		}
	}
	if err != nil {
		return domain.Country{}, false, fmt.Errorf("country %q: %w", r.Country, err)
	}
	d.Countries[r.Country] = c
	return c, true, nil
}

// resolveLocations walks each city key once per market so that a later row
// carrying a market can still place a country the first row could not.
func (d *Dimensions) resolveLocations(ctx context.Context, tx domain.Tx, records []Record) error {
	type location struct {
		city   domain.CityKey
		market string
	}
	for _, r := range distinct(records, func(r Record) location { return location{r.CityKey(), r.Market} }) {
		if r.Country == "" {
			continue
		}
		key := r.CityKey()
		if _, ok := d.Cities[key]; ok {
			continue
		}

		country, ok, err := d.country(ctx, tx, r)
		if err != nil {
			return err
		}
		if !ok || r.State == "" {
			continue
		}

		state, ok := d.States[key.StateKey()]
		if !ok {
			if state, err = tx.GetOrCreateState(ctx, r.State, country.ID); err != nil {
				return fmt.Errorf("state %q in %q: %w", r.State, r.Country, err)
			}
			d.States[key.StateKey()] = state
		}

		if r.City == "" {
			continue
		}
		city, err := tx.GetOrCreateCity(ctx, r.City, state.ID)
		if err != nil {
			return fmt.Errorf("city %q in %q, %q: %w", r.City, r.State, r.Country, err)
		}
		d.Cities[key] = city
	}
	return nil
}

func (d *Dimensions) resolveCustomers(ctx context.Context, tx domain.Tx, records []Record) error {
	type pair struct{ segment, customer string }
	for _, r := range distinct(records, func(r Record) pair { return pair{r.Segment, r.CustomerID} }) {
		if r.Segment == "" || r.CustomerID == "" {
			continue
		}
		segment, ok := d.Segments[r.Segment]
		if !ok {
			var err error
			if segment, err = tx.GetOrCreateSegment(ctx, r.Segment); err != nil {
				return fmt.Errorf("segment %q: %w", r.Segment, err)
			}
			d.Segments[r.Segment] = segment
		}
		if _, ok := d.Customers[r.CustomerID]; ok {
			continue
		}
		customer, err := tx.GetOrCreateCustomer(ctx, r.CustomerID, segment.ID)
		if err != nil {
			return fmt.Errorf("customer %q: %w", r.CustomerID, err)
		}
		d.Customers[r.CustomerID] = customer
	}
	return nil
}

func (d *Dimensions) resolveProducts(ctx context.Context, tx domain.Tx, records []Record) error {
	for _, r := range distinct(records, Record.ProductKey) {
		if r.Category == "" {
			continue
		}
		category, ok := d.Categories[r.Category]
		if !ok {
			var err error
			if category, err = tx.GetOrCreateCategory(ctx, r.Category); err != nil {
				return fmt.Errorf("category %q: %w", r.Category, err)
			}
			d.Categories[r.Category] = category
		}

		if r.Subcategory == "" {
			continue
		}
		key := r.ProductKey()
		sub, ok := d.Subcategories[key.SubcategoryKey()]
		if !ok {
			var err error
			if sub, err = tx.GetOrCreateSubcategory(ctx, r.Subcategory, category.ID); err != nil {
				return fmt.Errorf("subcategory %q in %q: %w", r.Subcategory, r.Category, err)
			}
			d.Subcategories[key.SubcategoryKey()] = sub
		}

		if r.Product == "" {
			continue
		}
		product, err := tx.GetOrCreateProduct(ctx, r.Product, sub.ID)
		if err != nil {
			return fmt.Errorf("product %q in %q: %w", r.Product, r.Subcategory, err)
		}
		d.Products[key] = product
	}
	return nil
}
