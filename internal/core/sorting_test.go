package core

import (
	"reflect"
	"testing"
	"time"
)

func TestSortTransactionsToggleReverses(t *testing.T) {
	txs := []Transaction{
		testTx(300000, 1, EventBuy, "2024-03-03T10:00:00Z"),
		testTx(100000, 1, EventBuy, "2024-03-01T10:00:00Z"),
		testTx(200000, 1, EventBuy, "2024-03-02T10:00:00Z"),
	}

	asc := append([]Transaction(nil), txs...)
	SortTransactions(asc, ColumnPrice, Ascending)
	desc := append([]Transaction(nil), txs...)
	SortTransactions(desc, ColumnPrice, Descending)

	for i := range asc {
		if asc[i].Price != desc[len(desc)-1-i].Price {
			t.Fatalf("descending is not the exact reverse of ascending at %d", i)
		}
	}
	if asc[0].Price.Cents != 100000 || asc[2].Price.Cents != 300000 {
		t.Errorf("ascending order wrong: %v", asc)
	}
}

func TestSortTransactionsByDate(t *testing.T) {
	txs := []Transaction{
		testTx(1, 1, EventBuy, "2024-03-02T10:00:00Z"),
		testTx(2, 1, EventBuy, "2023-12-31T23:59:59Z"),
		testTx(3, 1, EventBuy, "2024-03-02T09:59:59Z"),
	}
	SortTransactions(txs, ColumnEventTime, Ascending)

	for i := 1; i < len(txs); i++ {
		if txs[i-1].EventTime.After(txs[i].EventTime) {
			t.Fatalf("dates out of order at %d", i)
		}
	}
}

func TestSortTransactionsCaseInsensitiveStrings(t *testing.T) {
	mk := func(name string) Transaction {
		tx := testTx(1, 1, EventBuy, "2024-03-01T10:00:00Z")
		tx.Name = name
		return tx
	}
	txs := []Transaction{mk("cherry"), mk("Apple"), mk("banana")}
	SortTransactions(txs, ColumnName, Ascending)

	got := []string{txs[0].Name, txs[1].Name, txs[2].Name}
	want := []string{"Apple", "banana", "cherry"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}

func TestSortTransactionsMissingEventTypeLast(t *testing.T) {
	mk := func(e EventType, q int64) Transaction {
		tx := testTx(1, q, e, "2024-03-01T10:00:00Z")
		return tx
	}
	txs := []Transaction{mk("", 1), mk(EventSell, 2), mk(EventBuy, 3)}
	SortTransactions(txs, ColumnEventType, Ascending)

	if txs[0].EventType != EventBuy || txs[1].EventType != EventSell || txs[2].EventType != "" {
		t.Errorf("event type order = %v %v %v, want buy sell <missing>",
			txs[0].EventType, txs[1].EventType, txs[2].EventType)
	}
}

func TestSortTransactionsStable(t *testing.T) {
	mk := func(material string, q int64) Transaction {
		tx := testTx(1, q, EventBuy, "2024-03-01T10:00:00Z")
		tx.Material = material
		return tx
	}
	txs := []Transaction{mk("Gold", 1), mk("Gold", 2), mk("Gold", 3), mk("Silver", 4)}
	SortTransactions(txs, ColumnMaterial, Ascending)

	// Equal keys must preserve original relative order.
	if txs[0].Quantity != 1 || txs[1].Quantity != 2 || txs[2].Quantity != 3 {
		t.Errorf("equal-key rows reordered: %d %d %d", txs[0].Quantity, txs[1].Quantity, txs[2].Quantity)
	}
}

func TestSortStatsNullRatiosLast(t *testing.T) {
	ratio := func(v float64) *float64 { return &v }
	rows := []ProductStats{
		{SKU: "A", BuySellRatio: ratio(2.0)},
		{SKU: "B", BuySellRatio: nil},
		{SKU: "C", BuySellRatio: ratio(0.5)},
	}

	asc := append([]ProductStats(nil), rows...)
	SortStats(asc, StatsColumnRatio, Ascending)
	if asc[0].SKU != "C" || asc[1].SKU != "A" || asc[2].SKU != "B" {
		t.Errorf("ascending = %s %s %s, want C A B", asc[0].SKU, asc[1].SKU, asc[2].SKU)
	}

	desc := append([]ProductStats(nil), rows...)
	SortStats(desc, StatsColumnRatio, Descending)
	if desc[0].SKU != "A" || desc[1].SKU != "C" || desc[2].SKU != "B" {
		t.Errorf("descending = %s %s %s, want A C B (null still last)", desc[0].SKU, desc[1].SKU, desc[2].SKU)
	}
}

func TestSortStatsByVolume(t *testing.T) {
	rows := []ProductStats{
		{SKU: "A", TotalVolume: Money{Cents: 50}},
		{SKU: "B", TotalVolume: Money{Cents: 200}},
		{SKU: "C", TotalVolume: Money{Cents: 100}},
	}
	SortStats(rows, StatsColumnVolume, Descending)
	if rows[0].SKU != "B" || rows[1].SKU != "C" || rows[2].SKU != "A" {
		t.Errorf("volume order = %s %s %s, want B C A", rows[0].SKU, rows[1].SKU, rows[2].SKU)
	}
}

func TestSortTransactionsByComputedTotal(t *testing.T) {
	// Total sorts by price*quantity, not by price alone.
	a := testTx(100, 10, EventBuy, "2024-03-01T10:00:00Z") // total 1000
	b := testTx(900, 1, EventBuy, "2024-03-01T11:00:00Z")  // total 900
	txs := []Transaction{a, b}
	SortTransactions(txs, ColumnTotal, Ascending)
	if txs[0].Price.Cents != 900 {
		t.Errorf("expected the 900-total row first, got price %d", txs[0].Price.Cents)
	}
}

func TestParseColumns(t *testing.T) {
	if col, err := ParseTransactionColumn("premium_dollar"); err != nil || col != ColumnPremiumDollar {
		t.Errorf("ParseTransactionColumn = (%v, %v)", col, err)
	}
	if _, err := ParseTransactionColumn("ratio"); err == nil {
		t.Error("stats-only column should not parse as a transaction column")
	}
	if col, err := ParseStatsColumn("ratio"); err != nil || col != StatsColumnRatio {
		t.Errorf("ParseStatsColumn = (%v, %v)", col, err)
	}
	if _, err := ParseStatsColumn("bogus"); err == nil {
		t.Error("unknown column should not parse")
	}
}

func TestCompareKeysEqual(t *testing.T) {
	now := time.Now()
	a := testTx(100, 1, EventBuy, "2024-03-01T10:00:00Z")
	a.EventTime = now
	b := a
	if got := compareKeys(transactionKey(a, ColumnEventTime), transactionKey(b, ColumnEventTime), Ascending); got != 0 {
		t.Errorf("equal keys compare = %d, want 0", got)
	}
}
