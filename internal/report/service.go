package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Service builds dashboard views from a Source.
type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

// Overview returns the KPI totals and the time-filtered breakdowns.
func (s *Service) Overview(ctx context.Context, f Filter) (*Overview, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	df := f.Domain()
	v := &Overview{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		v.KPI, err = s.src.Totals(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		v.SalesByMarket, err = s.src.SalesByMarket(egCtx, df)
		return err
	})
	eg.Go(func() (err error) {
		v.QuantityByYear, err = s.src.QuantityByYear(egCtx, df)
		return err
	})
	eg.Go(func() (err error) {
		v.ProfitByCategory, err = s.src.ProfitByCategory(egCtx, df)
		return err
	})
	eg.Go(func() (err error) {
		v.SalesBySegment, err = s.src.SalesBySegment(egCtx, df)
		return err
	})
	eg.Go(func() (err error) {
		v.QuantityDistribution, err = s.src.QuantityDistribution(egCtx, df)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	return v, nil
}

// Market returns market sales, the top products of every market and profit
// by region and market. Markets with no matching sales get an empty list.
func (s *Service) Market(ctx context.Context, f Filter) (*MarketView, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	df := f.Domain()
	v := &MarketView{}

	var (
		markets = []string{}
		top     = []marketProduct{}
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		v.SalesByMarket, err = s.src.SalesByMarket(egCtx, df)
		return err
	})
	eg.Go(func() error {
		opts, err := s.src.Markets(egCtx)
		for _, o := range opts {
			markets = append(markets, o.Name)
		}
		return err
	})
	eg.Go(func() error {
		rows, err := s.src.TopProductsByMarket(egCtx, df, TopProductsPerMarket)
		for _, r := range rows {
			top = append(top, marketProduct{market: r.Market, ProductAmount: ProductAmount{Product: r.Product, Sales: r.Sales}})
		}
		return err
	})
	eg.Go(func() (err error) {
		v.ProfitByRegionMarket, err = s.src.ProfitByRegionMarket(egCtx, df)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("market view: %w", err)
	}

	v.TopProductsByMarket = make(map[string][]ProductAmount, len(markets))
	for _, m := range markets {
		v.TopProductsByMarket[m] = []ProductAmount{}
	}
	for _, p := range top {
		v.TopProductsByMarket[p.market] = append(v.TopProductsByMarket[p.market], p.ProductAmount)
	}
	return v, nil
}

type marketProduct struct {
	market string
	ProductAmount
}

// Customer returns customer KPIs, the segment breakdown, the purchase
// frequency histogram and the top customers by sales.
func (s *Service) Customer(ctx context.Context, f Filter) (*CustomerView, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	df := f.Domain()
	v := &CustomerView{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		v.KPI.TotalCustomers, err = s.src.CustomerCount(egCtx, f.SegmentID)
		return err
	})
	eg.Go(func() (err error) {
		v.KPI.AverageOrderValue, err = s.src.AverageOrderValue(egCtx, df)
		return err
	})
	eg.Go(func() (err error) {
		v.KPI.RevenuePerCustomer, err = s.src.RevenuePerCustomer(egCtx, df)
		return err
	})
	eg.Go(func() (err error) {
		v.CustomersBySegment, err = s.src.CustomersBySegment(egCtx)
		return err
	})
	eg.Go(func() error {
		buckets, err := s.src.PurchaseFrequency(egCtx, df)
		v.PurchaseFrequency = make([]Frequency, 0, len(buckets))
		for _, b := range buckets {
			v.PurchaseFrequency = append(v.PurchaseFrequency, Frequency{OrderCount: b.Value, CustomerCount: b.Count})
		}
		return err
	})
	eg.Go(func() error {
		rows, err := s.src.TopCustomers(egCtx, df, TopCustomerCount)
		v.TopCustomers = make([]CustomerRow, 0, len(rows))
		for _, r := range rows {
			v.TopCustomers = append(v.TopCustomers, CustomerRow{CustomerSales: r, Margin: Margin(r.Sales, r.Profit)})
		}
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("customer view: %w", err)
	}
	return v, nil
}

// Product returns per-product and per-category metrics and the seasonal
// sales breakdowns.
func (s *Service) Product(ctx context.Context, f Filter) (*ProductView, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	df := f.Domain()
	v := &ProductView{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rows, err := s.src.ProductSales(egCtx, df)
		v.ProductMetrics = make([]ProductRow, 0, len(rows))
		for _, r := range rows {
			v.ProductMetrics = append(v.ProductMetrics, ProductRow{ProductSales: r, Margin: Margin(r.Sales, r.Profit)})
		}
		return err
	})
	eg.Go(func() error {
		rows, err := s.src.CategorySales(egCtx, df)
		v.CategoryMetrics = make([]CategoryRow, 0, len(rows))
		for _, r := range rows {
			v.CategoryMetrics = append(v.CategoryMetrics, CategoryRow{
				Category:    r.Category,
				AvgDiscount: r.AvgDiscount,
				Margin:      Margin(r.Sales, r.Profit),
			})
		}
		return err
	})
	eg.Go(func() (err error) {
		v.PeakSalesByMonth, err = s.src.SalesByMonth(egCtx, df)
		return err
	})
	eg.Go(func() (err error) {
		v.PeakSalesByDay, err = s.src.SalesByWeekday(egCtx, df)
		return err
	})
	eg.Go(func() (err error) {
		v.SalesByMonthDay, err = s.src.SalesByMonthDay(egCtx, df)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("product view: %w", err)
	}
	return v, nil
}

// Filters returns the option lists for the dashboard filter controls.
func (s *Service) Filters(ctx context.Context) (*Filters, error) {
	v := &Filters{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		v.Years, err = s.src.Years(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		v.Markets, err = s.src.Markets(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		v.Segments, err = s.src.Segments(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		v.Categories, err = s.src.Categories(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		v.Subcategories, err = s.src.Subcategories(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("filters: %w", err)
	}
	return v, nil
}
