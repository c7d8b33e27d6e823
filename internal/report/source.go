// Package report assembles the dashboard views from grouped aggregate
// queries. Each view fans its independent queries out concurrently and
// derives margins in Go.
package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// Source runs the aggregate queries behind the dashboard. The Postgres
// store implements it.
type Source interface {
	Totals(ctx context.Context) (domain.Totals, error)
	SalesByMarket(ctx context.Context, f domain.ReportFilter) ([]domain.NamedAmount, error)
	QuantityByYear(ctx context.Context, f domain.ReportFilter) ([]domain.YearQuantity, error)
	ProfitByCategory(ctx context.Context, f domain.ReportFilter) ([]domain.NamedAmount, error)
	SalesBySegment(ctx context.Context, f domain.ReportFilter) ([]domain.NamedAmount, error)
	QuantityDistribution(ctx context.Context, f domain.ReportFilter) ([]domain.Bucket, error)

	TopProductsByMarket(ctx context.Context, f domain.ReportFilter, limit int) ([]domain.MarketProductSales, error)
	ProfitByRegionMarket(ctx context.Context, f domain.ReportFilter) ([]domain.RegionMarketAmount, error)

	CustomerCount(ctx context.Context, segmentID int64) (int64, error)
	AverageOrderValue(ctx context.Context, f domain.ReportFilter) (decimal.Decimal, error)
	RevenuePerCustomer(ctx context.Context, f domain.ReportFilter) (decimal.Decimal, error)
	CustomersBySegment(ctx context.Context) ([]domain.NamedCount, error)
	PurchaseFrequency(ctx context.Context, f domain.ReportFilter) ([]domain.Bucket, error)
	TopCustomers(ctx context.Context, f domain.ReportFilter, limit int) ([]domain.CustomerSales, error)

	ProductSales(ctx context.Context, f domain.ReportFilter) ([]domain.ProductSales, error)
	CategorySales(ctx context.Context, f domain.ReportFilter) ([]domain.CategorySales, error)
	SalesByMonth(ctx context.Context, f domain.ReportFilter) ([]domain.PeriodSales, error)
	SalesByWeekday(ctx context.Context, f domain.ReportFilter) ([]domain.PeriodSales, error)
	SalesByMonthDay(ctx context.Context, f domain.ReportFilter) ([]domain.MonthDaySales, error)

	Years(ctx context.Context) ([]int, error)
	Markets(ctx context.Context) ([]domain.Option, error)
	Segments(ctx context.Context) ([]domain.Option, error)
	Categories(ctx context.Context) ([]domain.Option, error)
	Subcategories(ctx context.Context) ([]domain.Option, error)
}
