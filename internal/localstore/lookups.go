package localstore

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// Read helpers used by dry-run reports and tests.

// FindCountry loads a country by name.
func (s *Store) FindCountry(ctx context.Context, name string) (domain.Country, error) {
	var m country
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		return domain.Country{}, translate(err)
	}
	return domain.Country{ID: m.ID, Name: m.Name, Latitude: m.Latitude, Longitude: m.Longitude, MarketID: m.MarketID}, nil
}

// FindOrder loads an order by its business id.
func (s *Store) FindOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var m order
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m).Error; err != nil {
		return domain.Order{}, translate(err)
	}
	return domain.Order{
		ID:         m.ID,
		OrderID:    m.OrderID,
		OrderDate:  domain.CalendarDate(m.OrderDate),
		CustomerID: m.CustomerID,
		CityID:     m.CityID,
	}, nil
}

// OrderDetails lists every detail row ordered by row_id.
func (s *Store) OrderDetails(ctx context.Context) ([]domain.OrderDetail, error) {
	var rows []orderDetail
	if err := s.db.WithContext(ctx).Order("row_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	out := make([]domain.OrderDetail, len(rows))
	for i, m := range rows {
		out[i] = domain.OrderDetail{
			ID:        m.ID,
			RowID:     m.RowID,
			OrderID:   m.OrderID,
			ProductID: m.ProductID,
			Quantity:  m.Quantity,
			Sales:     m.Sales,
			Discount:  m.Discount,
			Profit:    m.Profit,
		}
	}
	return out, nil
}

// danglingDetailsSQL counts details missing any ancestor up to Region,
// Segment or Category.
const danglingDetailsSQL = `
SELECT COUNT(*) FROM order_details d
LEFT JOIN orders o             ON o.id = d.order_id
LEFT JOIN customers cu         ON cu.id = o.customer_id
LEFT JOIN customer_segments sg ON sg.id = cu.segment_id
LEFT JOIN cities ci            ON ci.id = o.city_id
LEFT JOIN states st            ON st.id = ci.state_id
LEFT JOIN countries co         ON co.id = st.country_id
LEFT JOIN markets mk           ON mk.id = co.market_id
LEFT JOIN regions rg           ON rg.id = mk.region_id
LEFT JOIN products p           ON p.id = d.product_id
LEFT JOIN subcategories sc     ON sc.id = p.subcategory_id
LEFT JOIN categories ca        ON ca.id = sc.category_id
WHERE o.id IS NULL OR cu.id IS NULL OR sg.id IS NULL
   OR ci.id IS NULL OR st.id IS NULL OR co.id IS NULL
   OR mk.id IS NULL OR rg.id IS NULL
   OR p.id IS NULL OR sc.id IS NULL OR ca.id IS NULL`

// DanglingDetails returns how many order details have an incomplete
// reference chain. A consistent store returns 0.
func (s *Store) DanglingDetails(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Raw(danglingDetailsSQL).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("count dangling details: %w", err)
	}
	return n, nil
}
