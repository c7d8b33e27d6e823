package report

import (
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

const (
	// TopProductsPerMarket is how many products the market view ranks.
	TopProductsPerMarket = 5

	// TopCustomerCount is how many customers the customer view ranks.
	TopCustomerCount = 10
)

var hundred = decimal.NewFromInt(100)

// Margin returns profit as a percentage of sales, rounded to two places.
// Zero sales yields zero.
func Margin(sales, profit decimal.Decimal) decimal.Decimal {
	if sales.IsZero() {
		return decimal.Zero
	}
	return profit.Mul(hundred).DivRound(sales, domain.MoneyPlaces)
}

// Overview is the landing dashboard. KPI is always computed over all data.
type Overview struct {
	KPI                  domain.Totals         `json:"kpi"`
	SalesByMarket        []domain.NamedAmount  `json:"sales_by_market"`
	QuantityByYear       []domain.YearQuantity `json:"quantity_by_year"`
	ProfitByCategory     []domain.NamedAmount  `json:"profit_by_category"`
	SalesBySegment       []domain.NamedAmount  `json:"sales_by_segment"`
	QuantityDistribution []domain.Bucket       `json:"order_quantity_distribution"`
}

// ProductAmount is one ranked product inside a market.
type ProductAmount struct {
	Product string          `json:"product"`
	Sales   decimal.Decimal `json:"total_sales"`
}

type MarketView struct {
	SalesByMarket        []domain.NamedAmount        `json:"sales_by_market"`
	TopProductsByMarket  map[string][]ProductAmount  `json:"top_products_by_market"`
	ProfitByRegionMarket []domain.RegionMarketAmount `json:"profit_by_region_market"`
}

type CustomerKPI struct {
	TotalCustomers     int64           `json:"total_customers"`
	AverageOrderValue  decimal.Decimal `json:"aov"`
	RevenuePerCustomer decimal.Decimal `json:"revenue_per_customer"`
}

// Frequency is how many customers placed OrderCount distinct orders.
type Frequency struct {
	OrderCount    int   `json:"order_count"`
	CustomerCount int64 `json:"customer_count"`
}

type CustomerRow struct {
	domain.CustomerSales
	Margin decimal.Decimal `json:"profit_margin"`
}

type CustomerView struct {
	KPI                CustomerKPI         `json:"kpi"`
	CustomersBySegment []domain.NamedCount `json:"customers_by_segment"`
	PurchaseFrequency  []Frequency         `json:"purchase_frequency"`
	TopCustomers       []CustomerRow       `json:"top_customers"`
}

type ProductRow struct {
	domain.ProductSales
	Margin decimal.Decimal `json:"profit_margin"`
}

type CategoryRow struct {
	Category    string          `json:"category"`
	AvgDiscount decimal.Decimal `json:"avg_discount"`
	Margin      decimal.Decimal `json:"avg_profit_margin"`
}

type ProductView struct {
	ProductMetrics   []ProductRow           `json:"product_metrics"`
	CategoryMetrics  []CategoryRow          `json:"category_metrics"`
	PeakSalesByMonth []domain.PeriodSales   `json:"peak_sales_by_month"`
	PeakSalesByDay   []domain.PeriodSales   `json:"peak_sales_by_day"`
	SalesByMonthDay  []domain.MonthDaySales `json:"sales_by_month_day"`
}

// Filters lists the values the dashboard offers in its filter controls.
type Filters struct {
	Years         []int           `json:"years"`
	Markets       []domain.Option `json:"markets"`
	Segments      []domain.Option `json:"segments"`
	Categories    []domain.Option `json:"categories"`
	Subcategories []domain.Option `json:"subcategories"`
}
