// Package market defines the boundary between the analytics layer and the
// data sources that feed it. The HTTP server and the ingestion worker talk
// to these interfaces; sqlite and the in-memory store implement them.
package market

import (
	"context"
	"errors"

	"puremetrics/internal/core"
)

// ErrProductNotFound is returned when a (product id, variant id) pair is
// unknown to the source.
var ErrProductNotFound = errors.New("product not found")

// ErrTransactionNotFound is returned when an event-type restamp addresses a
// transaction the source does not hold.
var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionReader serves the transaction views.
type TransactionReader interface {
	// ListTransactions returns every transaction joined with its product's
	// display fields.
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	// ListVariantTransactions returns the transactions of one variant.
	ListVariantTransactions(ctx context.Context, productID, variantID string) ([]core.Transaction, error)
}

// ProductReader serves the product catalog and filter metadata.
type ProductReader interface {
	ListProducts(ctx context.Context) ([]core.Product, error)
	GetProduct(ctx context.Context, productID, variantID string) (core.Product, error)
	// ListMaterials returns the distinct material values, sorted.
	ListMaterials(ctx context.Context) ([]string, error)
}

// ProductWriter is the ingestion side of the product catalog.
type ProductWriter interface {
	// UpsertProducts inserts or refreshes products by (product id,
	// variant id), returning the number of rows written.
	UpsertProducts(ctx context.Context, products []core.Product) (int, error)
}

// TransactionWriter is the ingestion side of the transaction log.
type TransactionWriter interface {
	// UpsertTransactions inserts or refreshes transactions by
	// (event time, product id, variant id), returning the number written.
	UpsertTransactions(ctx context.Context, txs []core.Transaction) (int, error)
	// UpdateEventType restamps the classification label of one transaction.
	UpdateEventType(ctx context.Context, productID, variantID string, eventTime string, eventType core.EventType) error
}

// UnclassifiedRecord addresses one stored transaction with no event type
// label. EventTime is the stored text form, passed back verbatim to
// UpdateEventType.
type UnclassifiedRecord struct {
	ProductID          string
	VariantID          string
	EventTime          string
	SpotPremiumPercent float64
}

// UnclassifiedLister exposes unlabeled transactions for the backfill pass.
type UnclassifiedLister interface {
	ListUnclassifiedTransactions(ctx context.Context) ([]UnclassifiedRecord, error)
}
