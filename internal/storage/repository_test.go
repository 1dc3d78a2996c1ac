package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"puremetrics/internal/core"
	"puremetrics/internal/market"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleProduct() core.Product {
	offer, listing := 2.0, 6.0
	return core.Product{
		ProductID:            "p1",
		VariantID:            "v1",
		Name:                 "Gold Eagle 1oz",
		SKU:                  "GE-1OZ",
		Material:             "Gold",
		VariantLabel:         "Standard",
		ImageURL:             "https://img.example/ge.png",
		HighestOfferPremium:  &offer,
		LowestListingPremium: &listing,
		MarketDataUpdatedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func sampleTransaction(at time.Time, eventType core.EventType) core.Transaction {
	return core.Transaction{
		ProductID:          "p1",
		VariantID:          "v1",
		Price:              core.Money{Cents: 100050},
		Quantity:           2,
		SpotPremiumPercent: 5.5,
		SpotPremiumDollar:  core.Money{Cents: 5025},
		EventTime:          at,
		EventType:          eventType,
	}
}

func TestMigrateSchemaSharesConnection(t *testing.T) {
	repo := testRepo(t)

	// A second pass is a no-op and must leave the repository's own
	// connection open.
	if err := migrateSchema(repo.db); err != nil {
		t.Fatalf("second migrate pass error = %v", err)
	}
	if err := repo.db.Ping(); err != nil {
		t.Errorf("connection unusable after migrate pass: %v", err)
	}
}

func TestProductRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	want := sampleProduct()
	if _, err := repo.UpsertProducts(ctx, []core.Product{want}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetProduct(ctx, "p1", "v1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != want.Name || got.SKU != want.SKU || got.ImageURL != want.ImageURL {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.HighestOfferPremium == nil || *got.HighestOfferPremium != 2.0 {
		t.Errorf("HighestOfferPremium = %v", got.HighestOfferPremium)
	}
	if !got.MarketDataUpdatedAt.Equal(want.MarketDataUpdatedAt) {
		t.Errorf("MarketDataUpdatedAt = %v, want %v", got.MarketDataUpdatedAt, want.MarketDataUpdatedAt)
	}
}

func TestGetProductNotFound(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.GetProduct(context.Background(), "nope", "v1")
	if !errors.Is(err, market.ErrProductNotFound) {
		t.Errorf("err = %v, want ErrProductNotFound", err)
	}
}

func TestUpsertProductsReplaces(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	p := sampleProduct()
	if _, err := repo.UpsertProducts(ctx, []core.Product{p}); err != nil {
		t.Fatal(err)
	}

	p.Name = "Gold Eagle 1oz (2024)"
	p.HighestOfferPremium = nil
	if _, err := repo.UpsertProducts(ctx, []core.Product{p}); err != nil {
		t.Fatal(err)
	}

	products, err := repo.ListProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1 after re-upsert", len(products))
	}
	if products[0].Name != "Gold Eagle 1oz (2024)" {
		t.Errorf("Name = %q, upsert should replace", products[0].Name)
	}
	if products[0].HighestOfferPremium != nil {
		t.Error("upsert should overwrite market data with null")
	}
}

func TestTransactionRoundTripAndJoin(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	if _, err := repo.UpsertProducts(ctx, []core.Product{sampleProduct()}); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 3, 1, 10, 0, 0, 123e6, time.UTC)
	if _, err := repo.UpsertTransactions(ctx, []core.Transaction{sampleTransaction(at, core.EventBuy)}); err != nil {
		t.Fatal(err)
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Price.Cents != 100050 || tx.Quantity != 2 || tx.EventType != core.EventBuy {
		t.Errorf("tx = %+v", tx)
	}
	if !tx.EventTime.Equal(at) {
		t.Errorf("EventTime = %v, want %v", tx.EventTime, at)
	}
	// Display fields come from the joined product row.
	if tx.Name != "Gold Eagle 1oz" || tx.Material != "Gold" || tx.VariantLabel != "Standard" {
		t.Errorf("join fields missing: %+v", tx)
	}
}

func TestUpsertTransactionsDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tx := sampleTransaction(at, core.EventBuy)
	if _, err := repo.UpsertTransactions(ctx, []core.Transaction{tx}); err != nil {
		t.Fatal(err)
	}

	tx.Price.Cents = 200000
	if _, err := repo.UpsertTransactions(ctx, []core.Transaction{tx}); err != nil {
		t.Fatal(err)
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1 after conflicting upsert", len(txs))
	}
	if txs[0].Price.Cents != 200000 {
		t.Errorf("Price = %d, conflict should update the row", txs[0].Price.Cents)
	}
}

func TestListVariantTransactionsScopes(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mine := sampleTransaction(at, core.EventBuy)
	other := sampleTransaction(at.Add(time.Hour), core.EventSell)
	other.VariantID = "v2"
	if _, err := repo.UpsertTransactions(ctx, []core.Transaction{mine, other}); err != nil {
		t.Fatal(err)
	}

	txs, err := repo.ListVariantTransactions(ctx, "p1", "v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].VariantID != "v1" {
		t.Fatalf("variant scope returned %d rows", len(txs))
	}
}

func TestListMaterials(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	gold := sampleProduct()
	silver := sampleProduct()
	silver.ProductID, silver.Material = "p2", "Silver"
	bare := sampleProduct()
	bare.ProductID, bare.Material = "p3", ""
	if _, err := repo.UpsertProducts(ctx, []core.Product{gold, silver, bare}); err != nil {
		t.Fatal(err)
	}

	materials, err := repo.ListMaterials(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(materials) != 2 || materials[0] != "Gold" || materials[1] != "Silver" {
		t.Errorf("materials = %v", materials)
	}
}

func TestBackfillAddressing(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	unlabeled := sampleTransaction(at, "")
	labeled := sampleTransaction(at.Add(time.Hour), core.EventSell)
	if _, err := repo.UpsertTransactions(ctx, []core.Transaction{unlabeled, labeled}); err != nil {
		t.Fatal(err)
	}

	records, err := repo.ListUnclassifiedTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("unclassified = %d, want 1", len(records))
	}

	// The stored event_time text addresses the row exactly.
	rec := records[0]
	if err := repo.UpdateEventType(ctx, rec.ProductID, rec.VariantID, rec.EventTime, core.EventBuy); err != nil {
		t.Fatal(err)
	}

	after, err := repo.ListUnclassifiedTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 0 {
		t.Errorf("unclassified after restamp = %d, want 0", len(after))
	}
}

func TestUpdateEventTypeMissingRow(t *testing.T) {
	repo := testRepo(t)
	err := repo.UpdateEventType(context.Background(), "p1", "v1", "2024-03-01T10:00:00.000Z", core.EventBuy)
	if !errors.Is(err, market.ErrTransactionNotFound) {
		t.Errorf("err = %v, want ErrTransactionNotFound", err)
	}
}
