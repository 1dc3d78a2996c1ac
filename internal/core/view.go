package core

import (
	"time"
)

type (
	// TransactionViewState carries every input the transaction list view
	// depends on. It is passed explicitly on each call; the composer holds
	// no state between calls.
	TransactionViewState struct {
		Query      string            `json:"query"`
		Materials  MaterialSet       `json:"materials"`
		SortColumn TransactionColumn `json:"sort_column"`
		Direction  Direction         `json:"direction"`
	}

	// StatsViewState is the equivalent for the product stats view.
	StatsViewState struct {
		Query      string      `json:"query"`
		Materials  MaterialSet `json:"materials"`
		SortColumn StatsColumn `json:"sort_column"`
		Direction  Direction   `json:"direction"`
	}
)

// TransactionRow is one display row: the original fields plus the derived
// gross total and classification label.
type TransactionRow struct {
	Transaction
	Total          Money
	Classification Classification
}

// Summary carries the totals rendered above every view.
type Summary struct {
	RowCount         int     `json:"row_count"`
	TransactionCount int     `json:"transaction_count"`
	// TotalVolume is the gross volume of the filtered set in display dollars.
	TotalVolume float64 `json:"total_volume"`
	// DaysScanned is the whole-day span between now and the earliest event
	// in the unfiltered set. Only the transaction list view reports it.
	DaysScanned int `json:"days_scanned"`
}

type TransactionView struct {
	Rows    []TransactionRow
	Summary Summary
}

type StatsView struct {
	Rows    []ProductStats
	Summary Summary
}

// DetailView is the variant-scoped product page: ordered rows, the variant's
// stats row, and its daily demand series.
type DetailView struct {
	Product Product
	Rows    []TransactionRow
	Stats   ProductStats
	Demand  []DailyBucket
	Summary Summary
}

// ComposeTransactionView orders and filters the full transaction list:
// Filter → Classifier → Comparator. now is injected rather than read from a
// clock so repeated calls over the same input produce identical output.
func ComposeTransactionView(txs []Transaction, state TransactionViewState, now time.Time) TransactionView {
	filtered := FilterTransactions(txs, state.Query, state.Materials)
	SortTransactions(filtered, state.SortColumn, state.Direction)

	rows := make([]TransactionRow, len(filtered))
	var volume int64
	for i, t := range filtered {
		rows[i] = TransactionRow{
			Transaction:    t,
			Total:          t.Total(),
			Classification: Classify(t),
		}
		volume += t.Total().Cents
	}

	return TransactionView{
		Rows: rows,
		Summary: Summary{
			RowCount:         len(rows),
			TransactionCount: len(rows),
			TotalVolume:      Money{Cents: volume}.Dollars(),
			DaysScanned:      daysScanned(txs, now),
		},
	}
}

// ComposeStatsView aggregates by SKU, then filters and orders the rows.
func ComposeStatsView(txs []Transaction, state StatsViewState) StatsView {
	rows := FilterStats(AggregateBySKU(txs), state.Query, state.Materials)
	SortStats(rows, state.SortColumn, state.Direction)

	var txCount int
	var volume int64
	for _, s := range rows {
		txCount += s.TransactionCount
		volume += s.TotalVolume.Cents
	}

	return StatsView{
		Rows: rows,
		Summary: Summary{
			RowCount:         len(rows),
			TransactionCount: txCount,
			TotalVolume:      Money{Cents: volume}.Dollars(),
		},
	}
}

// ComposeDetailView builds the product page for a single variant. A variant
// with no transactions still gets a zeroed stats row.
func ComposeDetailView(p Product, txs []Transaction, col TransactionColumn, dir Direction) DetailView {
	scoped := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.ProductID == p.ProductID && t.VariantID == p.VariantID {
			scoped = append(scoped, t)
		}
	}

	stats := VariantStats(p, scoped)
	demand := BucketByDay(scoped)
	SortTransactions(scoped, col, dir)

	rows := make([]TransactionRow, len(scoped))
	var volume int64
	for i, t := range scoped {
		rows[i] = TransactionRow{
			Transaction:    t,
			Total:          t.Total(),
			Classification: Classify(t),
		}
		volume += t.Total().Cents
	}

	return DetailView{
		Product: p,
		Rows:    rows,
		Stats:   stats,
		Demand:  demand,
		Summary: Summary{
			RowCount:         len(rows),
			TransactionCount: len(rows),
			TotalVolume:      Money{Cents: volume}.Dollars(),
		},
	}
}

// daysScanned reports the whole-day difference between now and the earliest
// event time in the set. The set here is the unfiltered one: the metric
// describes how far back the data reaches, not the current filter.
func daysScanned(txs []Transaction, now time.Time) int {
	if len(txs) == 0 {
		return 0
	}
	earliest := txs[0].EventTime
	for _, t := range txs[1:] {
		if t.EventTime.Before(earliest) {
			earliest = t.EventTime
		}
	}
	if now.Before(earliest) {
		return 0
	}
	return int(now.Sub(earliest).Hours() / 24)
}
