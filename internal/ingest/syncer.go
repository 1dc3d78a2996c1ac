// Package ingest pulls the Pure marketplace catalog and trade activity into
// local storage on a schedule.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"puremetrics/internal/core"
	"puremetrics/internal/market"
	"puremetrics/internal/pureapi"
)

// activityTimeLayout matches the marketplace's createdAt format, fractional
// seconds and a numeric zone with no colon.
const activityTimeLayout = "2006-01-02 15:04:05.999999-07"

// Notifier is told when a sync pass lands new data. The AMQP publisher
// implements it; nil disables notifications.
type Notifier interface {
	NotifySyncCompleted(ctx context.Context, scope string, count int) error
}

type Syncer struct {
	client      *pureapi.Client
	products    market.ProductWriter
	catalog     market.ProductReader
	txs         market.TransactionWriter
	notifier    Notifier
	concurrency int
}

func NewSyncer(client *pureapi.Client, products market.ProductWriter, catalog market.ProductReader, txs market.TransactionWriter, notifier Notifier, concurrency int) *Syncer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Syncer{
		client:      client,
		products:    products,
		catalog:     catalog,
		txs:         txs,
		notifier:    notifier,
		concurrency: concurrency,
	}
}

// SyncProducts refreshes the product catalog: option list, detail batches,
// then a single upsert.
func (s *Syncer) SyncProducts(ctx context.Context) (int, error) {
	variants, err := s.client.FetchVariants(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync products: %w", err)
	}

	details, err := s.client.FetchProducts(ctx, pureapi.DeduplicateProductIDs(variants))
	if err != nil {
		return 0, fmt.Errorf("sync products: %w", err)
	}

	built := buildProducts(variants, details, time.Now().UTC())
	count, err := s.products.UpsertProducts(ctx, built)
	if err != nil {
		return 0, fmt.Errorf("sync products: %w", err)
	}

	s.notify(ctx, "products", count)
	return count, nil
}

// SyncTransactions fetches activity for every cataloged variant with bounded
// concurrency and upserts per variant, so one slow product cannot hold back
// the rest.
func (s *Syncer) SyncTransactions(ctx context.Context) (int, error) {
	catalog, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync transactions: %w", err)
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, p := range catalog {
		g.Go(func() error {
			events, err := s.client.FetchActivity(gctx, p.ProductID, p.VariantID)
			if err != nil {
				// Skip, the next pass will pick the variant up again.
				slog.ErrorContext(gctx, "Activity fetch failed",
					"product_id", p.ProductID,
					"variant_id", p.VariantID,
					"error", err)
				return nil
			}

			txs, parseErrs := ParseActivity(p, events)
			for _, perr := range parseErrs {
				slog.WarnContext(gctx, "Skipping malformed activity event",
					"product_id", p.ProductID,
					"variant_id", p.VariantID,
					"error", perr)
			}
			if len(txs) == 0 {
				return nil
			}

			n, err := s.txs.UpsertTransactions(gctx, txs)
			if err != nil {
				return fmt.Errorf("upsert activity for %s/%s: %w", p.ProductID, p.VariantID, err)
			}
			total.Add(int64(n))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}

	count := int(total.Load())
	s.notify(ctx, "transactions", count)
	return count, nil
}

// BackfillEventTypes restamps stored rows that predate event classification,
// using each variant's current market data.
func (s *Syncer) BackfillEventTypes(ctx context.Context, unclassified market.UnclassifiedLister) (int, error) {
	records, err := unclassified.ListUnclassifiedTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("backfill event types: %w", err)
	}

	restamped := 0
	for _, rec := range records {
		p, err := s.catalog.GetProduct(ctx, rec.ProductID, rec.VariantID)
		if err != nil {
			slog.WarnContext(ctx, "No product for unclassified transaction",
				"product_id", rec.ProductID,
				"variant_id", rec.VariantID,
				"error", err)
			continue
		}

		label := DetermineEventType(rec.SpotPremiumPercent, p.HighestOfferPremium, p.LowestListingPremium)
		if err := s.txs.UpdateEventType(ctx, rec.ProductID, rec.VariantID, rec.EventTime, label); err != nil {
			return restamped, fmt.Errorf("restamp %s/%s@%s: %w", rec.ProductID, rec.VariantID, rec.EventTime, err)
		}
		restamped++
	}

	slog.InfoContext(ctx, "Backfilled event types",
		"candidates", len(records),
		"restamped", restamped)
	return restamped, nil
}

func (s *Syncer) notify(ctx context.Context, scope string, count int) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifySyncCompleted(ctx, scope, count); err != nil {
		slog.ErrorContext(ctx, "Sync notification failed", "scope", scope, "error", err)
	}
}

// buildProducts joins the flattened option catalog with the detail records,
// matching variants by title, and yields one row per (product, variant).
func buildProducts(variants []pureapi.FlattenedVariant, details []pureapi.ProductData, now time.Time) []core.Product {
	byID := make(map[string]pureapi.ProductData, len(details))
	for _, d := range details {
		byID[d.ProductID] = d
	}

	out := make([]core.Product, 0, len(variants))
	for _, v := range variants {
		p := core.Product{
			ProductID:    v.ProductID,
			VariantID:    v.VariantID,
			Name:         v.ProductName,
			VariantLabel: v.VariantTitle,
		}
		if d, ok := byID[v.ProductID]; ok {
			p.Name = d.Name
			p.SKU = d.SKU
			p.Material = d.Material
			p.ImageURL = d.ImageURL
			for _, dv := range d.Variants {
				if dv.VariantID == v.VariantID || dv.Title == v.VariantTitle {
					if dv.HighestOffer != nil {
						premium := dv.HighestOffer.SpotPremium
						p.HighestOfferPremium = &premium
					}
					if dv.LowestListing != nil {
						premium := dv.LowestListing.SpotPremium
						p.LowestListingPremium = &premium
					}
					p.MarketDataUpdatedAt = now
					break
				}
			}
		}
		out = append(out, p)
	}
	return out
}

// ParseActivity converts raw activity events into transactions for one
// variant. Malformed events are collected as errors instead of aborting the
// batch.
func ParseActivity(p core.Product, events []pureapi.ActivityEvent) ([]core.Transaction, []error) {
	var (
		out  []core.Transaction
		errs []error
	)
	for _, ev := range events {
		at, err := time.Parse(activityTimeLayout, ev.CreatedAt)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse createdAt %q: %w", ev.CreatedAt, err))
			continue
		}

		label := core.EventType(ev.Event)
		if label != core.EventBuy && label != core.EventSell {
			label = DetermineEventType(ev.SpotPremium, p.HighestOfferPremium, p.LowestListingPremium)
		}

		out = append(out, core.Transaction{
			ProductID:          p.ProductID,
			VariantID:          p.VariantID,
			Price:              dollarsToMoney(ev.Price),
			Quantity:           ev.Quantity,
			SpotPremiumPercent: ev.SpotPremium,
			SpotPremiumDollar:  dollarsToMoney(ev.SpotPremiumDollar),
			EventTime:          at.UTC(),
			EventType:          label,
		})
	}
	return out, errs
}

func dollarsToMoney(dollars float64) core.Money {
	return core.Money{Cents: int64(math.Round(dollars * 100))}
}
