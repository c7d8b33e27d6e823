package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/salesdash/internal/core"
	"github.com/JonMunkholm/salesdash/internal/domain"
)

func TestWrapErr(t *testing.T) {
	t.Run("no rows maps to not found", func(t *testing.T) {
		assert.ErrorIs(t, wrapErr(fmt.Errorf("scan: %w", pgx.ErrNoRows)), domain.ErrNotFound)
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		err := wrapErr(&pgconn.PgError{
			Code:           codeUniqueViolation,
			ConstraintName: "order_details_row_id_key",
			Detail:         "Key (row_id)=(7) already exists.",
		})
		assert.ErrorIs(t, err, domain.ErrDuplicate)
		assert.Contains(t, err.Error(), "order_details_row_id_key")
		assert.Equal(t, "DB001", core.MapError(err).Code)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		in := errors.New("connection refused")
		assert.Same(t, in, wrapErr(in))
		assert.NoError(t, wrapErr(nil))
	})
}

func TestApplyFilter(t *testing.T) {
	tests := []struct {
		name     string
		filter   domain.ReportFilter
		wantSQL  []string
		wantArgs []any
	}{
		{
			name:   "empty filter adds no where clause",
			filter: domain.ReportFilter{},
		},
		{
			name:     "year and month",
			filter:   domain.ReportFilter{Year: 2014, Month: 3},
			wantSQL:  []string{"EXTRACT(YEAR FROM o.order_date)::int = $1", "EXTRACT(MONTH FROM o.order_date)::int = $2"},
			wantArgs: []any{2014, 3},
		},
		{
			name:     "quarter expands to months",
			filter:   domain.ReportFilter{Quarter: 2},
			wantSQL:  []string{"EXTRACT(MONTH FROM o.order_date)::int IN ($1,$2,$3)"},
			wantArgs: []any{4, 5, 6},
		},
		{
			name:     "dimension ids",
			filter:   domain.ReportFilter{MarketID: 3, CategoryID: 1, ProductID: 9},
			wantSQL:  []string{"m.id = $1", "cat.id = $2", "p.id = $3"},
			wantArgs: []any{int64(3), int64(1), int64(9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := facts(tt.filter, "COUNT(*)").ToSql()
			require.NoError(t, err)

			if len(tt.wantSQL) == 0 {
				assert.NotContains(t, sql, "WHERE")
			}
			for _, frag := range tt.wantSQL {
				assert.Contains(t, sql, frag)
			}
			assert.Equal(t, tt.wantArgs, nilIfEmpty(args))
		})
	}
}

func nilIfEmpty(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	return args
}

func TestTopProductsByMarket_PlaceholdersRenumbered(t *testing.T) {
	ranked := facts(domain.ReportFilter{Year: 2014}, "m.name AS market", "ROW_NUMBER() OVER () AS rn")
	q := builder().Select("market").FromSelect(ranked, "ranked").Where("rn <= ?", 5)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "= $1")
	assert.Contains(t, sql, "rn <= $2")
	assert.Equal(t, []any{2014, 5}, args)
}

// openTestStore connects to TEST_DATABASE_URL, applies the schema and
// empties every table.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, Options{URL: url, MaxConns: 4, PingTimeout: 10 * time.Second})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.Migrate(ctx))
	// Migrate twice to prove it is idempotent.
	require.NoError(t, s.Migrate(ctx))

	require.NoError(t, s.Reset(ctx))
	return s
}

const testHeader = "Row ID,Order ID,Order Date,Customer ID,Segment,City,State,Country,Country latitude,Country longitude,Region,Market,Category,Subcategory,Product,Sales,Quantity,Discount,Profit"

func sheet(rows ...string) *strings.Reader {
	return strings.NewReader(testHeader + "\n" + strings.Join(rows, "\n") + "\n")
}

func TestPostgres_ImportAndReports(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	svc := core.NewService(s, s, core.ServiceOptions{})

	res := svc.Import(ctx, "orders.csv", sheet(
		"1,CA-1,2014-01-06,C1,Consumer,Chicago,Illinois,United States,39.8,-98.5,Central,US,Furniture,Chairs,Task Chair,100.50,2,0.2,10.25",
		"2,CA-1,2014-01-06,C1,Consumer,Chicago,Illinois,United States,39.8,-98.5,Central,US,Furniture,Chairs,Stool,50.25,1,0,-5",
		"3,CA-2,2015-04-07,C2,Corporate,Peoria,Illinois,United States,,,Central,US,Technology,Phones,Handset,200,3,0.1,40",
	))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 3, res.DetailsInserted)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Regions)
	assert.Equal(t, int64(2), counts.Cities)
	assert.Equal(t, int64(2), counts.Orders)
	assert.Equal(t, int64(3), counts.OrderDetails)

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("350.75").Equal(totals.Sales), totals.Sales.String())
	assert.Equal(t, int64(6), totals.Quantity)

	byYear, err := s.QuantityByYear(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, []domain.YearQuantity{{Year: 2014, Quantity: 3}, {Year: 2015, Quantity: 3}}, byYear)

	q2, err := s.SalesByMarket(ctx, domain.ReportFilter{Quarter: 2})
	require.NoError(t, err)
	require.Len(t, q2, 1)
	assert.True(t, decimal.NewFromInt(200).Equal(q2[0].Amount))

	top, err := s.TopProductsByMarket(ctx, domain.ReportFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Handset", top[0].Product)
	assert.Equal(t, "Task Chair", top[1].Product)

	aov, err := s.AverageOrderValue(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, "175.38", aov.StringFixed(2))

	freq, err := s.PurchaseFrequency(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, []domain.Bucket{{Value: 1, Count: 2}}, freq)

	// 2014-01-06 was a Monday: weekday 2.
	days, err := s.SalesByWeekday(ctx, domain.ReportFilter{Year: 2014})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 2, days[0].Period)

	cats, err := s.CategorySales(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Furniture", cats[0].Category)
	assert.Equal(t, "10", cats[0].AvgDiscount.String())

	years, err := s.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2014, 2015}, years)

	runs, err := s.ListImports(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.ImportSucceeded, runs[0].Status)
	assert.Equal(t, res.RunID, runs[0].ID)
}

func TestPostgres_RepeatImportRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	svc := core.NewService(s, s, core.ServiceOptions{})

	row := "1,CA-1,2014-01-06,C1,Consumer,Chicago,Illinois,United States,,,Central,US,Furniture,Chairs,Task Chair,100,2,0,10"
	first := svc.Import(ctx, "a.csv", sheet(row))
	require.True(t, first.Success, first.Message)

	before, err := s.Counts(ctx)
	require.NoError(t, err)

	second := svc.Import(ctx, "a.csv", sheet(
		"2,CA-9,2014-02-01,C9,Home Office,Springfield,Illinois,United States,,,Central,US,Furniture,Chairs,Desk,5,1,0,1",
		row,
	))
	require.False(t, second.Success)
	assert.Equal(t, "DB001", second.UserError.User.Code)

	after, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPostgres_GetOrCreateFirstSeenWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lat := 10.0
	err := s.InTx(ctx, func(tx domain.Tx) error {
		region, err := tx.GetOrCreateRegion(ctx, "Central")
		require.NoError(t, err)
		market, err := tx.GetOrCreateMarket(ctx, "US", region.ID)
		require.NoError(t, err)

		first, err := tx.GetOrCreateCountry(ctx, domain.Country{Name: "United States", Latitude: &lat, MarketID: market.ID})
		require.NoError(t, err)

		other := 99.0
		again, err := tx.GetOrCreateCountry(ctx, domain.Country{Name: "United States", Latitude: &other, MarketID: market.ID})
		require.NoError(t, err)

		assert.Equal(t, first.ID, again.ID)
		require.NotNil(t, again.Latitude)
		assert.Equal(t, 10.0, *again.Latitude)
		assert.Nil(t, again.Longitude)
		return nil
	})
	require.NoError(t, err)
}

func TestSchema_IdentifierWidths(t *testing.T) {
	for _, col := range []string{"customer_id VARCHAR(100)", "order_id    VARCHAR(100)"} {
		assert.Contains(t, schemaSQL, col)
	}
}

func TestPostgres_LongIdentifiersAndFinds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	customerID := strings.Repeat("C", 100)
	orderID := strings.Repeat("O", 100)
	err := s.InTx(ctx, func(tx domain.Tx) error {
		_, err := tx.FindMarket(ctx, "US")
		require.ErrorIs(t, err, domain.ErrNotFound)

		region, err := tx.GetOrCreateRegion(ctx, "Central")
		require.NoError(t, err)
		market, err := tx.GetOrCreateMarket(ctx, "US", region.ID)
		require.NoError(t, err)
		country, err := tx.GetOrCreateCountry(ctx, domain.Country{Name: "United States", MarketID: market.ID})
		require.NoError(t, err)

		found, err := tx.FindMarket(ctx, "US")
		require.NoError(t, err)
		assert.Equal(t, market.ID, found.ID)
		foundCountry, err := tx.FindCountry(ctx, "United States")
		require.NoError(t, err)
		assert.Equal(t, country.ID, foundCountry.ID)

		state, err := tx.GetOrCreateState(ctx, "Illinois", country.ID)
		require.NoError(t, err)
		city, err := tx.GetOrCreateCity(ctx, "Chicago", state.ID)
		require.NoError(t, err)
		segment, err := tx.GetOrCreateSegment(ctx, "Consumer")
		require.NoError(t, err)
		customer, err := tx.GetOrCreateCustomer(ctx, customerID, segment.ID)
		require.NoError(t, err)

		order, err := tx.GetOrCreateOrder(ctx, domain.Order{
			OrderID:    orderID,
			OrderDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			CustomerID: customer.ID,
			CityID:     city.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, orderID, order.OrderID)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgres_ResetEmptiesEverything(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	svc := core.NewService(s, s, core.ServiceOptions{})

	res := svc.Import(ctx, "orders.csv", sheet(
		"1,CA-1,2014-01-06,C1,Consumer,Chicago,Illinois,United States,,,Central,US,Furniture,Chairs,Task Chair,100,2,0,10",
	))
	require.True(t, res.Success, res.Message)

	require.NoError(t, s.Reset(ctx))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{}, counts)

	runs, err := s.ListImports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// Sequences restart, so the next region is id 1 again.
	err = s.InTx(ctx, func(tx domain.Tx) error {
		region, err := tx.GetOrCreateRegion(ctx, "West")
		require.NoError(t, err)
		assert.Equal(t, int64(1), region.ID)
		return nil
	})
	require.NoError(t, err)
}
