package localstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]`)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory(unsafeName.ReplaceAllString(t.Name(), "_"))
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreate_ReusesExistingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var first, second domain.Market
	err := s.InTx(ctx, func(tx domain.Tx) error {
		r1, err := tx.GetOrCreateRegion(ctx, "Central")
		if err != nil {
			return err
		}
		r2, err := tx.GetOrCreateRegion(ctx, "East")
		if err != nil {
			return err
		}
		if first, err = tx.GetOrCreateMarket(ctx, "EU", r1.ID); err != nil {
			return err
		}
		second, err = tx.GetOrCreateMarket(ctx, "EU", r2.ID)
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("market ids differ: %d vs %d", first.ID, second.ID)
	}
	if second.RegionID != first.RegionID {
		t.Errorf("second lookup region = %d, want first writer's %d", second.RegionID, first.RegionID)
	}

	c, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if c.Markets != 1 || c.Regions != 2 {
		t.Errorf("counts = %+v, want 1 market and 2 regions", c)
	}
}

func TestGetOrCreate_CompositeKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx domain.Tx) error {
		r, err := tx.GetOrCreateRegion(ctx, "North")
		if err != nil {
			return err
		}
		m, err := tx.GetOrCreateMarket(ctx, "US", r.ID)
		if err != nil {
			return err
		}
		us, err := tx.GetOrCreateCountry(ctx, domain.Country{Name: "United States", MarketID: m.ID})
		if err != nil {
			return err
		}
		il, err := tx.GetOrCreateState(ctx, "Illinois", us.ID)
		if err != nil {
			return err
		}
		mo, err := tx.GetOrCreateState(ctx, "Missouri", us.ID)
		if err != nil {
			return err
		}
		a, err := tx.GetOrCreateCity(ctx, "Springfield", il.ID)
		if err != nil {
			return err
		}
		b, err := tx.GetOrCreateCity(ctx, "Springfield", mo.ID)
		if err != nil {
			return err
		}
		if a.ID == b.ID {
			t.Errorf("cities in different states share id %d", a.ID)
		}
		again, err := tx.GetOrCreateCity(ctx, "Springfield", il.ID)
		if err != nil {
			return err
		}
		if again.ID != a.ID {
			t.Errorf("repeat lookup id = %d, want %d", again.ID, a.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
}

func TestInsertOrderDetail_DuplicateRowID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx domain.Tx) error {
		o, p := seedOrderAndProduct(ctx, t, tx)
		d := domain.OrderDetail{RowID: 1, OrderID: o.ID, ProductID: p.ID, Quantity: 2,
			Sales: decimal.RequireFromString("10.50"), Discount: decimal.Zero, Profit: decimal.RequireFromString("1.25")}
		if _, err := tx.InsertOrderDetail(ctx, d); err != nil {
			return err
		}
		_, err := tx.InsertOrderDetail(ctx, d)
		return err
	})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("second insert error = %v, want ErrDuplicate", err)
	}

	c, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if c != (domain.Counts{}) {
		t.Errorf("counts after rollback = %+v, want all zero", c)
	}
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx domain.Tx) error {
		o, p := seedOrderAndProduct(ctx, t, tx)
		_, err := tx.InsertOrderDetail(ctx, domain.OrderDetail{RowID: 9, OrderID: o.ID, ProductID: p.ID, Quantity: 1,
			Sales: decimal.RequireFromString("3.333"), Discount: decimal.RequireFromString("0.2"), Profit: decimal.Zero})
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	details, err := s.OrderDetails(ctx)
	if err != nil {
		t.Fatalf("OrderDetails: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("got %d details, want 1", len(details))
	}
	if !details[0].Sales.Equal(decimal.RequireFromString("3.33")) {
		t.Errorf("sales = %s, want 3.33", details[0].Sales)
	}

	n, err := s.DanglingDetails(ctx)
	if err != nil {
		t.Fatalf("DanglingDetails: %v", err)
	}
	if n != 0 {
		t.Errorf("dangling details = %d, want 0", n)
	}
}

func TestImportHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	runs := []domain.ImportRun{
		{ID: "a", FileName: "jan.csv", Status: domain.ImportSucceeded, RowsRead: 10, DetailsInserted: 9, RowsSkipped: 1, Message: "ok", Duration: 1500 * time.Millisecond, CreatedAt: base},
		{ID: "b", FileName: "feb.csv", Status: domain.ImportFailed, RowsRead: 4, Message: "import failed: boom", CreatedAt: base.Add(time.Hour)},
	}
	for _, r := range runs {
		if err := s.RecordImport(ctx, r); err != nil {
			t.Fatalf("RecordImport(%s): %v", r.ID, err)
		}
	}

	got, err := s.ListImports(ctx, 10)
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListImports returned %d runs, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("order = [%s %s], want newest first", got[0].ID, got[1].ID)
	}
	if got[1].Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v, want 1.5s", got[1].Duration)
	}
	if got[0].Status != domain.ImportFailed {
		t.Errorf("status = %q, want failed", got[0].Status)
	}

	limited, err := s.ListImports(ctx, 1)
	if err != nil {
		t.Fatalf("ListImports(1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListImports(1) returned %d runs", len(limited))
	}
}

func seedOrderAndProduct(ctx context.Context, t *testing.T, tx domain.Tx) (domain.Order, domain.Product) {
	t.Helper()
	must := func(err error) {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	r, err := tx.GetOrCreateRegion(ctx, "West")
	must(err)
	m, err := tx.GetOrCreateMarket(ctx, "US", r.ID)
	must(err)
	c, err := tx.GetOrCreateCountry(ctx, domain.Country{Name: "United States", MarketID: m.ID})
	must(err)
	st, err := tx.GetOrCreateState(ctx, "California", c.ID)
	must(err)
	ci, err := tx.GetOrCreateCity(ctx, "Los Angeles", st.ID)
	must(err)
	sg, err := tx.GetOrCreateSegment(ctx, "Consumer")
	must(err)
	cu, err := tx.GetOrCreateCustomer(ctx, "CG-12520", sg.ID)
	must(err)
	ca, err := tx.GetOrCreateCategory(ctx, "Furniture")
	must(err)
	sc, err := tx.GetOrCreateSubcategory(ctx, "Chairs", ca.ID)
	must(err)
	p, err := tx.GetOrCreateProduct(ctx, "Task Chair", sc.ID)
	must(err)
	o, err := tx.GetOrCreateOrder(ctx, domain.Order{
		OrderID:    "CA-2024-1",
		OrderDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		CustomerID: cu.ID,
		CityID:     ci.ID,
	})
	must(err)
	return o, p
}
