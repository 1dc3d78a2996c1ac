// Package memory provides an in-memory market store. It backs tests and the
// DATA_BACKEND=memory development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"puremetrics/internal/core"
	"puremetrics/internal/market"
)

type productKey struct {
	productID string
	variantID string
}

type txKey struct {
	productID string
	variantID string
	eventTime int64
}

// Store keeps products and transactions in maps keyed the same way the
// sqlite schema is keyed, so upsert semantics match across backends.
type Store struct {
	mu       sync.RWMutex
	products map[productKey]core.Product
	txs      map[txKey]core.Transaction
}

func NewStore() *Store {
	return &Store{
		products: make(map[productKey]core.Product),
		txs:      make(map[txKey]core.Transaction),
	}
}

// Seed loads products and transactions without going through the writer
// interfaces. Intended for tests and local development.
func (s *Store) Seed(products []core.Product, txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[productKey{p.ProductID, p.VariantID}] = p
	}
	for _, tx := range txs {
		s.txs[txKey{tx.ProductID, tx.VariantID, tx.EventTime.UnixMilli()}] = tx
	}
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, s.denormalize(tx))
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) ListVariantTransactions(ctx context.Context, productID, variantID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.ProductID == productID && tx.VariantID == variantID {
			out = append(out, s.denormalize(tx))
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].VariantID < out[j].VariantID
	})
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, productID, variantID string) (core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productKey{productID, variantID}]
	if !ok {
		return core.Product{}, market.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) ListMaterials(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.products {
		if p.Material != "" {
			seen[p.Material] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UpsertProducts(ctx context.Context, products []core.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		s.products[productKey{p.ProductID, p.VariantID}] = p
	}
	return len(products), nil
}

func (s *Store) UpsertTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		s.txs[txKey{tx.ProductID, tx.VariantID, tx.EventTime.UnixMilli()}] = tx
	}
	return len(txs), nil
}

func (s *Store) UpdateEventType(ctx context.Context, productID, variantID string, eventTime string, eventType core.EventType) error {
	at, err := time.Parse(time.RFC3339Nano, eventTime)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := txKey{productID, variantID, at.UnixMilli()}
	tx, ok := s.txs[key]
	if !ok {
		return market.ErrTransactionNotFound
	}
	tx.EventType = eventType
	s.txs[key] = tx
	return nil
}

func (s *Store) ListUnclassifiedTransactions(ctx context.Context) ([]market.UnclassifiedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []market.UnclassifiedRecord
	for _, tx := range s.txs {
		if tx.EventType == "" {
			out = append(out, market.UnclassifiedRecord{
				ProductID:          tx.ProductID,
				VariantID:          tx.VariantID,
				EventTime:          tx.EventTime.UTC().Format(time.RFC3339Nano),
				SpotPremiumPercent: tx.SpotPremiumPercent,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventTime < out[j].EventTime })
	return out, nil
}

// denormalize fills the display fields from the product catalog, the way the
// sqlite backend joins them. The caller must hold at least a read lock.
func (s *Store) denormalize(tx core.Transaction) core.Transaction {
	if p, ok := s.products[productKey{tx.ProductID, tx.VariantID}]; ok {
		tx.Name = p.Name
		tx.SKU = p.SKU
		tx.Material = p.Material
		tx.VariantLabel = p.VariantLabel
	}
	return tx
}

func sortTransactions(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].EventTime.Equal(txs[j].EventTime) {
			return txs[i].EventTime.After(txs[j].EventTime)
		}
		if txs[i].ProductID != txs[j].ProductID {
			return txs[i].ProductID < txs[j].ProductID
		}
		return txs[i].VariantID < txs[j].VariantID
	})
}

var (
	_ market.TransactionReader  = (*Store)(nil)
	_ market.ProductReader      = (*Store)(nil)
	_ market.ProductWriter      = (*Store)(nil)
	_ market.TransactionWriter  = (*Store)(nil)
	_ market.UnclassifiedLister = (*Store)(nil)
)
