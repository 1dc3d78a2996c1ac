package core

import (
	"sort"
)

// ProductStats is one aggregation row, recomputed from the current
// transaction set on every call and never persisted. Quantity and amount
// totals default to zero when a group has no records on that side; the
// buy/sell ratio alone distinguishes "no sells" (nil) from a real value.
type ProductStats struct {
	ProductID    string
	VariantID    string
	Name         string
	SKU          string
	Material     string
	VariantLabel string

	TransactionCount int
	BuyCount         int
	SellCount        int

	// BuySellRatio is nil when the group has no sell transactions. It is
	// never infinite and never NaN.
	BuySellRatio *float64

	// TotalVolume sums price × quantity over every record in the group,
	// regardless of classification.
	TotalVolume Money

	TotalBuyQuantity  int64
	TotalSellQuantity int64
	TotalBuyAmount    Money
	TotalSellAmount   Money
}

// AggregateByVariant folds transactions into one stats row per
// (product id, variant id) group. This is the grouping the transaction and
// product-detail views use. The fold is idempotent and independent of input
// order; output is sorted by group key so repeated runs are byte-identical.
func AggregateByVariant(txs []Transaction) []ProductStats {
	groups := make(map[[2]string]*ProductStats)
	for _, t := range txs {
		key := [2]string{t.ProductID, t.VariantID}
		row, ok := groups[key]
		if !ok {
			row = &ProductStats{
				ProductID:    t.ProductID,
				VariantID:    t.VariantID,
				Name:         t.Name,
				SKU:          t.SKU,
				Material:     t.Material,
				VariantLabel: t.VariantLabel,
			}
			groups[key] = row
		}
		fold(row, t)
	}

	rows := make([]ProductStats, 0, len(groups))
	for _, row := range groups {
		finish(row)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductID != rows[j].ProductID {
			return rows[i].ProductID < rows[j].ProductID
		}
		return rows[i].VariantID < rows[j].VariantID
	})
	return rows
}

// AggregateBySKU folds transactions into one stats row per SKU, collapsing
// variants of the same product. This is the grouping the product stats view
// uses; each record is attributed to exactly one SKU group.
func AggregateBySKU(txs []Transaction) []ProductStats {
	groups := make(map[string]*ProductStats)
	for _, t := range txs {
		row, ok := groups[t.SKU]
		if !ok {
			row = &ProductStats{
				ProductID: t.ProductID,
				Name:      t.Name,
				SKU:       t.SKU,
				Material:  t.Material,
			}
			groups[t.SKU] = row
		}
		fold(row, t)
	}

	rows := make([]ProductStats, 0, len(groups))
	for _, row := range groups {
		finish(row)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].SKU < rows[j].SKU
	})
	return rows
}

// VariantStats aggregates the transactions of a single product variant.
// A variant with no transactions still yields a stats row of zeros with a
// nil ratio rather than being dropped.
func VariantStats(p Product, txs []Transaction) ProductStats {
	row := ProductStats{
		ProductID:    p.ProductID,
		VariantID:    p.VariantID,
		Name:         p.Name,
		SKU:          p.SKU,
		Material:     p.Material,
		VariantLabel: p.VariantLabel,
	}
	for _, t := range txs {
		if t.ProductID != p.ProductID || t.VariantID != p.VariantID {
			continue
		}
		fold(&row, t)
	}
	finish(&row)
	return row
}

func fold(row *ProductStats, t Transaction) {
	gross := t.Price.Cents * t.Quantity
	row.TransactionCount++
	row.TotalVolume.Cents += gross

	switch Classify(t) {
	case ClassBuy:
		row.BuyCount++
		row.TotalBuyQuantity += t.Quantity
		row.TotalBuyAmount.Cents += gross
	case ClassSell:
		row.SellCount++
		row.TotalSellQuantity += t.Quantity
		row.TotalSellAmount.Cents += gross
	}
	// Unknowns count toward TransactionCount and TotalVolume only.
}

func finish(row *ProductStats) {
	if row.SellCount > 0 {
		ratio := float64(row.BuyCount) / float64(row.SellCount)
		row.BuySellRatio = &ratio
	}
}
