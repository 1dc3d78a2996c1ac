package core

import (
	"fmt"
	"sort"
	"strings"
)

// Direction selects ascending or descending order for a sort.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// TransactionColumn names a sortable column of the transaction views.
type TransactionColumn string

const (
	ColumnName           TransactionColumn = "name"
	ColumnSKU            TransactionColumn = "sku"
	ColumnMaterial       TransactionColumn = "material"
	ColumnVariant        TransactionColumn = "variant"
	ColumnEventTime      TransactionColumn = "event_time"
	ColumnQuantity       TransactionColumn = "quantity"
	ColumnPrice          TransactionColumn = "price"
	ColumnTotal          TransactionColumn = "total"
	ColumnPremiumPercent TransactionColumn = "premium_percent"
	ColumnPremiumDollar  TransactionColumn = "premium_dollar"
	ColumnEventType      TransactionColumn = "event_type"
)

// StatsColumn names a sortable column of the product stats view.
type StatsColumn string

const (
	StatsColumnName         StatsColumn = "name"
	StatsColumnSKU          StatsColumn = "sku"
	StatsColumnMaterial     StatsColumn = "material"
	StatsColumnTransactions StatsColumn = "transactions"
	StatsColumnBuys         StatsColumn = "buys"
	StatsColumnSells        StatsColumn = "sells"
	StatsColumnRatio        StatsColumn = "ratio"
	StatsColumnVolume       StatsColumn = "volume"
	StatsColumnBuyQuantity  StatsColumn = "buy_quantity"
	StatsColumnSellQuantity StatsColumn = "sell_quantity"
	StatsColumnBuyAmount    StatsColumn = "buy_amount"
	StatsColumnSellAmount   StatsColumn = "sell_amount"
)

// ParseTransactionColumn validates a column name from the outside world.
func ParseTransactionColumn(s string) (TransactionColumn, error) {
	switch col := TransactionColumn(s); col {
	case ColumnName, ColumnSKU, ColumnMaterial, ColumnVariant, ColumnEventTime,
		ColumnQuantity, ColumnPrice, ColumnTotal, ColumnPremiumPercent,
		ColumnPremiumDollar, ColumnEventType:
		return col, nil
	}
	return "", fmt.Errorf("unknown transaction column %q", s)
}

// ParseStatsColumn validates a stats column name from the outside world.
func ParseStatsColumn(s string) (StatsColumn, error) {
	switch col := StatsColumn(s); col {
	case StatsColumnName, StatsColumnSKU, StatsColumnMaterial,
		StatsColumnTransactions, StatsColumnBuys, StatsColumnSells,
		StatsColumnRatio, StatsColumnVolume, StatsColumnBuyQuantity,
		StatsColumnSellQuantity, StatsColumnBuyAmount, StatsColumnSellAmount:
		return col, nil
	}
	return "", fmt.Errorf("unknown stats column %q", s)
}

// sortKey is the tagged comparator value extracted from one cell. A cell is
// either null, a string, or a number, never more than one of those.
type sortKey struct {
	null  bool
	isStr bool
	str   string
	num   float64
}

func numKey(v float64) sortKey { return sortKey{num: v} }

func strKey(v string) sortKey { return sortKey{isStr: true, str: strings.ToLower(v)} }

func nullKey() sortKey { return sortKey{null: true} }

// compareKeys is the three-way compare shared by every column. Null cells
// sort after everything else in both directions; direction applies only to
// the non-null compare. Equal keys report 0 so stable sorts keep the
// original relative order.
func compareKeys(a, b sortKey, dir Direction) int {
	if a.null || b.null {
		switch {
		case a.null && b.null:
			return 0
		case a.null:
			return 1
		default:
			return -1
		}
	}

	var c int
	switch {
	case a.isStr:
		c = strings.Compare(a.str, b.str)
	case a.num < b.num:
		c = -1
	case a.num > b.num:
		c = 1
	}
	if dir == Descending {
		c = -c
	}
	return c
}

func transactionKey(t Transaction, col TransactionColumn) sortKey {
	switch col {
	case ColumnName:
		return strKey(t.Name)
	case ColumnSKU:
		return strKey(t.SKU)
	case ColumnMaterial:
		return strKey(t.Material)
	case ColumnVariant:
		return strKey(t.VariantLabel)
	case ColumnQuantity:
		return numKey(float64(t.Quantity))
	case ColumnPrice:
		return numKey(float64(t.Price.Cents))
	case ColumnTotal:
		return numKey(float64(t.Price.Cents * t.Quantity))
	case ColumnPremiumPercent:
		return numKey(t.SpotPremiumPercent)
	case ColumnPremiumDollar:
		return numKey(float64(t.SpotPremiumDollar.Cents))
	case ColumnEventType:
		if t.EventType == "" {
			// Unlabeled records group after every real label ascending.
			return strKey("zzz")
		}
		return strKey(string(t.EventType))
	default:
		return numKey(float64(t.EventTime.UnixMilli()))
	}
}

func statsKey(s ProductStats, col StatsColumn) sortKey {
	switch col {
	case StatsColumnName:
		return strKey(s.Name)
	case StatsColumnSKU:
		return strKey(s.SKU)
	case StatsColumnMaterial:
		return strKey(s.Material)
	case StatsColumnTransactions:
		return numKey(float64(s.TransactionCount))
	case StatsColumnBuys:
		return numKey(float64(s.BuyCount))
	case StatsColumnSells:
		return numKey(float64(s.SellCount))
	case StatsColumnRatio:
		if s.BuySellRatio == nil {
			return nullKey()
		}
		return numKey(*s.BuySellRatio)
	case StatsColumnBuyQuantity:
		return numKey(float64(s.TotalBuyQuantity))
	case StatsColumnSellQuantity:
		return numKey(float64(s.TotalSellQuantity))
	case StatsColumnBuyAmount:
		return numKey(float64(s.TotalBuyAmount.Cents))
	case StatsColumnSellAmount:
		return numKey(float64(s.TotalSellAmount.Cents))
	default:
		return numKey(float64(s.TotalVolume.Cents))
	}
}

// SortTransactions orders rows in place by the selected column. The sort is
// stable: rows with equal keys keep their relative order.
func SortTransactions(txs []Transaction, col TransactionColumn, dir Direction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return compareKeys(transactionKey(txs[i], col), transactionKey(txs[j], col), dir) < 0
	})
}

// SortStats orders stats rows in place by the selected column, stable.
func SortStats(rows []ProductStats, col StatsColumn, dir Direction) {
	sort.SliceStable(rows, func(i, j int) bool {
		return compareKeys(statsKey(rows[i], col), statsKey(rows[j], col), dir) < 0
	})
}
