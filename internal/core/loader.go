package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// DefaultSkippedLineSample caps how many skipped line numbers are kept.
const DefaultSkippedLineSample = 50

// missingMarket reports whether country could not be placed for want of a
// market.
func (d *Dimensions) missingMarket(country string) bool {
	if _, ok := d.Countries[country]; ok {
		return false
	}
	_, ok := d.Unplaced[country]
	return ok
}

// LoadFacts writes one order detail per record. Records whose city,
// product, customer or order id did not resolve are skipped and counted.
// The first record of an order sets its date, customer and city.
func LoadFacts(ctx context.Context, tx domain.Tx, dims *Dimensions, records []Record, sample int) (LoadStats, error) {
	if sample <= 0 {
		sample = DefaultSkippedLineSample
	}

	stats := LoadStats{SkippedBy: make(map[SkipReason]int)}
	orders := make(map[string]domain.Order)

	skip := func(r Record, why SkipReason) {
		stats.RowsSkipped++
		stats.SkippedBy[why]++
		if len(stats.SkippedLines) < sample {
			stats.SkippedLines = append(stats.SkippedLines, r.Line)
		}
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		city, ok := dims.Cities[r.CityKey()]
		if !ok {
			if dims.missingMarket(r.Country) {
				skip(r, SkipNoMarket)
			} else {
				skip(r, SkipNoCity)
			}
			continue
		}
		product, ok := dims.Products[r.ProductKey()]
		if !ok {
			skip(r, SkipNoProduct)
			continue
		}
		customer, ok := dims.Customers[r.CustomerID]
		if !ok {
			skip(r, SkipNoCustomer)
			continue
		}
		if r.OrderID == "" {
			skip(r, SkipNoOrderID)
			continue
		}

		order, ok := orders[r.OrderID]
		if !ok {
			var err error
			order, err = tx.GetOrCreateOrder(ctx, domain.Order{
				OrderID:    r.OrderID,
				OrderDate:  r.OrderDate,
				CustomerID: customer.ID,
				CityID:     city.ID,
			})
			if err != nil {
				return stats, fmt.Errorf("line %d: %w", r.Line, err)
			}
			orders[r.OrderID] = order
		}

		_, err := tx.InsertOrderDetail(ctx, domain.OrderDetail{
			RowID:     r.RowID,
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  r.Quantity,
			Sales:     r.Sales.Round(domain.MoneyPlaces),
			Discount:  r.Discount.Round(domain.MoneyPlaces),
			Profit:    r.Profit.Round(domain.MoneyPlaces),
		})
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", r.Line, err)
		}
		stats.DetailsInserted++
	}

	stats.Orders = len(orders)
	if len(stats.SkippedBy) == 0 {
		stats.SkippedBy = nil
	}
	return stats, nil
}
