package database

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

const (
	yearExpr    = "EXTRACT(YEAR FROM o.order_date)::int"
	monthExpr   = "EXTRACT(MONTH FROM o.order_date)::int"
	weekdayExpr = "(EXTRACT(DOW FROM o.order_date)::int + 1)"

	sumSales    = "COALESCE(SUM(od.sales), 0)"
	sumProfit   = "COALESCE(SUM(od.profit), 0)"
	sumQuantity = "COALESCE(SUM(od.quantity), 0)"
)

// facts selects from order_details joined through every FK chain, with the
// filter applied. All references are NOT NULL so inner joins drop nothing.
func facts(f domain.ReportFilter, columns ...string) sq.SelectBuilder {
	b := builder().Select(columns...).
		From(tableOrderDetails + " od").
		Join(tableOrders + " o ON o.id = od.order_id").
		Join(tableProducts + " p ON p.id = od.product_id").
		Join(tableSubcategories + " sc ON sc.id = p.subcategory_id").
		Join(tableCategories + " cat ON cat.id = sc.category_id").
		Join(tableCustomers + " cu ON cu.id = o.customer_id").
		Join(tableSegments + " seg ON seg.id = cu.segment_id").
		Join(tableCities + " ci ON ci.id = o.city_id").
		Join(tableStates + " st ON st.id = ci.state_id").
		Join(tableCountries + " co ON co.id = st.country_id").
		Join(tableMarkets + " m ON m.id = co.market_id").
		Join(tableRegions + " r ON r.id = m.region_id")
	return applyFilter(b, f)
}

func applyFilter(b sq.SelectBuilder, f domain.ReportFilter) sq.SelectBuilder {
	if f.Year != 0 {
		b = b.Where(sq.Eq{yearExpr: f.Year})
	}
	if f.Month != 0 {
		b = b.Where(sq.Eq{monthExpr: f.Month})
	}
	if months := domain.QuarterMonths(f.Quarter); months != nil {
		b = b.Where(sq.Eq{monthExpr: months})
	}
	if f.MarketID != 0 {
		b = b.Where(sq.Eq{"m.id": f.MarketID})
	}
	if f.SegmentID != 0 {
		b = b.Where(sq.Eq{"seg.id": f.SegmentID})
	}
	if f.CategoryID != 0 {
		b = b.Where(sq.Eq{"cat.id": f.CategoryID})
	}
	if f.SubcategoryID != 0 {
		b = b.Where(sq.Eq{"sc.id": f.SubcategoryID})
	}
	if f.ProductID != 0 {
		b = b.Where(sq.Eq{"p.id": f.ProductID})
	}
	return b
}

// Totals sums sales, profit and quantity over every order detail.
func (s *Store) Totals(ctx context.Context) (domain.Totals, error) {
	var t domain.Totals
	q := builder().Select(sumSales, sumProfit, sumQuantity).From(tableOrderDetails + " od")
	if err := get(ctx, s.pool, q, &t.Sales, &t.Profit, &t.Quantity); err != nil {
		return domain.Totals{}, fmt.Errorf("totals: %w", err)
	}
	return t, nil
}

func (s *Store) SalesByMarket(ctx context.Context, f domain.ReportFilter) ([]domain.NamedAmount, error) {
	q := facts(f, "m.name", sumSales+" AS total").
		GroupBy("m.id", "m.name").
		OrderBy("total DESC", "m.name")
	return list[domain.NamedAmount](ctx, s, "sales by market", q)
}

func (s *Store) QuantityByYear(ctx context.Context, f domain.ReportFilter) ([]domain.YearQuantity, error) {
	q := facts(f, yearExpr+" AS year", sumQuantity).
		GroupBy("year").
		OrderBy("year")
	return list[domain.YearQuantity](ctx, s, "quantity by year", q)
}

func (s *Store) ProfitByCategory(ctx context.Context, f domain.ReportFilter) ([]domain.NamedAmount, error) {
	q := facts(f, "cat.name", sumProfit+" AS total").
		GroupBy("cat.id", "cat.name").
		OrderBy("total DESC", "cat.name")
	return list[domain.NamedAmount](ctx, s, "profit by category", q)
}

func (s *Store) SalesBySegment(ctx context.Context, f domain.ReportFilter) ([]domain.NamedAmount, error) {
	q := facts(f, "seg.name", sumSales+" AS total").
		GroupBy("seg.id", "seg.name").
		OrderBy("total DESC", "seg.name")
	return list[domain.NamedAmount](ctx, s, "sales by segment", q)
}

// QuantityDistribution counts order detail rows per quantity value.
func (s *Store) QuantityDistribution(ctx context.Context, f domain.ReportFilter) ([]domain.Bucket, error) {
	q := facts(f, "od.quantity", "COUNT(*)").
		GroupBy("od.quantity").
		OrderBy("od.quantity")
	return list[domain.Bucket](ctx, s, "quantity distribution", q)
}

// TopProductsByMarket returns up to limit best-selling products per market,
// grouped by market name and ranked by sales within each market.
func (s *Store) TopProductsByMarket(ctx context.Context, f domain.ReportFilter, limit int) ([]domain.MarketProductSales, error) {
	ranked := facts(f,
		"m.name AS market",
		"p.name AS product",
		sumSales+" AS total",
		"ROW_NUMBER() OVER (PARTITION BY m.id ORDER BY "+sumSales+" DESC, p.name) AS rn",
	).GroupBy("m.id", "m.name", "p.id", "p.name")

	q := builder().Select("market", "product", "total").
		FromSelect(ranked, "ranked").
		Where(sq.LtOrEq{"rn": limit}).
		OrderBy("market", "rn")
	return list[domain.MarketProductSales](ctx, s, "top products by market", q)
}

func (s *Store) ProfitByRegionMarket(ctx context.Context, f domain.ReportFilter) ([]domain.RegionMarketAmount, error) {
	q := facts(f, "r.name", "m.name", sumProfit+" AS total").
		GroupBy("r.id", "r.name", "m.id", "m.name").
		OrderBy("r.name", "total DESC")
	return list[domain.RegionMarketAmount](ctx, s, "profit by region and market", q)
}

// CustomerCount counts customers, optionally within one segment. It reads
// the customers table, so customers without orders are included.
func (s *Store) CustomerCount(ctx context.Context, segmentID int64) (int64, error) {
	q := builder().Select("COUNT(*)").From(tableCustomers)
	if segmentID != 0 {
		q = q.Where(sq.Eq{"segment_id": segmentID})
	}
	var n int64
	if err := get(ctx, s.pool, q, &n); err != nil {
		return 0, fmt.Errorf("customer count: %w", err)
	}
	return n, nil
}

// AverageOrderValue is the mean of per-order sales sums.
func (s *Store) AverageOrderValue(ctx context.Context, f domain.ReportFilter) (decimal.Decimal, error) {
	perOrder := facts(f, "o.id", sumSales+" AS total").GroupBy("o.id")
	return s.average(ctx, "average order value", perOrder)
}

// RevenuePerCustomer is the mean of per-customer sales sums.
func (s *Store) RevenuePerCustomer(ctx context.Context, f domain.ReportFilter) (decimal.Decimal, error) {
	perCustomer := facts(f, "cu.id", sumSales+" AS total").GroupBy("cu.id")
	return s.average(ctx, "revenue per customer", perCustomer)
}

func (s *Store) average(ctx context.Context, what string, inner sq.SelectBuilder) (decimal.Decimal, error) {
	q := builder().Select("COALESCE(AVG(t.total), 0)").FromSelect(inner, "t")
	var avg decimal.Decimal
	if err := get(ctx, s.pool, q, &avg); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", what, err)
	}
	return avg.Round(domain.MoneyPlaces), nil
}

// CustomersBySegment counts customers per segment over the whole table.
func (s *Store) CustomersBySegment(ctx context.Context) ([]domain.NamedCount, error) {
	q := builder().Select("seg.name", "COUNT(cu.id) AS n").
		From(tableSegments+" seg").
		Join(tableCustomers+" cu ON cu.segment_id = seg.id").
		GroupBy("seg.id", "seg.name").
		OrderBy("n DESC", "seg.name")
	return list[domain.NamedCount](ctx, s, "customers by segment", q)
}

// PurchaseFrequency buckets customers by how many distinct orders they
// placed.
func (s *Store) PurchaseFrequency(ctx context.Context, f domain.ReportFilter) ([]domain.Bucket, error) {
	perCustomer := facts(f, "cu.id", "COUNT(DISTINCT o.id)::int AS orders").GroupBy("cu.id")
	q := builder().Select("t.orders", "COUNT(*)").
		FromSelect(perCustomer, "t").
		GroupBy("t.orders").
		OrderBy("t.orders")
	return list[domain.Bucket](ctx, s, "purchase frequency", q)
}

func (s *Store) TopCustomers(ctx context.Context, f domain.ReportFilter, limit int) ([]domain.CustomerSales, error) {
	q := facts(f, "cu.customer_id", sumSales+" AS total", sumProfit).
		GroupBy("cu.id", "cu.customer_id").
		OrderBy("total DESC", "cu.customer_id").
		Limit(uint64(limit))
	return list[domain.CustomerSales](ctx, s, "top customers", q)
}

func (s *Store) ProductSales(ctx context.Context, f domain.ReportFilter) ([]domain.ProductSales, error) {
	q := facts(f, "cat.name", "sc.name", "p.name", sumSales+" AS total", sumProfit).
		GroupBy("cat.id", "cat.name", "sc.id", "sc.name", "p.id", "p.name").
		OrderBy("total DESC", "p.name")
	return list[domain.ProductSales](ctx, s, "product sales", q)
}

// CategorySales reports the average discount as a percentage.
func (s *Store) CategorySales(ctx context.Context, f domain.ReportFilter) ([]domain.CategorySales, error) {
	q := facts(f, "cat.name", "ROUND(COALESCE(AVG(od.discount), 0) * 100, 2)", sumSales, sumProfit).
		GroupBy("cat.id", "cat.name").
		OrderBy("cat.name")
	return list[domain.CategorySales](ctx, s, "category sales", q)
}

func (s *Store) SalesByMonth(ctx context.Context, f domain.ReportFilter) ([]domain.PeriodSales, error) {
	q := facts(f, monthExpr+" AS period", sumSales+" AS total").
		GroupBy("period").
		OrderBy("total DESC", "period")
	return list[domain.PeriodSales](ctx, s, "sales by month", q)
}

// SalesByWeekday numbers days 1 (Sunday) to 7 (Saturday).
func (s *Store) SalesByWeekday(ctx context.Context, f domain.ReportFilter) ([]domain.PeriodSales, error) {
	q := facts(f, weekdayExpr+" AS period", sumSales+" AS total").
		GroupBy("period").
		OrderBy("total DESC", "period")
	return list[domain.PeriodSales](ctx, s, "sales by weekday", q)
}

func (s *Store) SalesByMonthDay(ctx context.Context, f domain.ReportFilter) ([]domain.MonthDaySales, error) {
	q := facts(f, monthExpr+" AS month", weekdayExpr+" AS day", sumSales).
		GroupBy("month", "day").
		OrderBy("month", "day")
	return list[domain.MonthDaySales](ctx, s, "sales by month and weekday", q)
}

// Years lists the distinct order years that have details.
func (s *Store) Years(ctx context.Context) ([]int, error) {
	q := builder().Select(yearExpr + " AS year").
		Distinct().
		From(tableOrderDetails + " od").
		Join(tableOrders + " o ON o.id = od.order_id").
		OrderBy("year")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("years: %w", wrapErr(err))
	}
	years, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("years: %w", err)
	}
	return years, nil
}

func (s *Store) Markets(ctx context.Context) ([]domain.Option, error) {
	return s.options(ctx, tableMarkets)
}

func (s *Store) Segments(ctx context.Context) ([]domain.Option, error) {
	return s.options(ctx, tableSegments)
}

func (s *Store) Categories(ctx context.Context) ([]domain.Option, error) {
	return s.options(ctx, tableCategories)
}

func (s *Store) Subcategories(ctx context.Context) ([]domain.Option, error) {
	return s.options(ctx, tableSubcategories)
}

func (s *Store) options(ctx context.Context, table string) ([]domain.Option, error) {
	q := builder().Select("id", "name").From(table).OrderBy("name", "id")
	return list[domain.Option](ctx, s, table, q)
}

func list[T any](ctx context.Context, s *Store, what string, q sq.SelectBuilder) ([]T, error) {
	out, err := selectAll[T](ctx, s.pool, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
