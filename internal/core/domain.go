package core

import (
	"time"
)

// EventType is the buy/sell label stamped on a transaction at ingestion
// time. Legacy records carry no label at all; records ingested while the
// marketplace reported no market data are stamped EventUnknown.
type EventType string

const (
	EventBuy     EventType = "buy"
	EventSell    EventType = "sell"
	EventUnknown EventType = "unknown"
)

type (
	// Transaction is one marketplace event, immutable once ingested.
	// (ProductID, VariantID, EventTime) is unique across the set.
	Transaction struct {
		ProductID string
		VariantID string

		Price              Money // per-unit, cents
		Quantity           int64
		SpotPremiumPercent float64
		SpotPremiumDollar  Money // cents, may be negative
		EventTime          time.Time
		EventType          EventType // empty for unclassified legacy records

		// Denormalized product fields for display.
		Name         string
		SKU          string
		Material     string
		VariantLabel string
	}

	// Product is the reference entity a transaction belongs to. Identity is
	// (ProductID, VariantID); a product may have several variants, each a
	// distinct aggregation group.
	Product struct {
		ProductID    string
		VariantID    string
		Name         string
		SKU          string
		Material     string
		VariantLabel string
		ImageURL     string

		// Current market data used to classify new activity. Nil when the
		// marketplace reports no open offer/listing for the variant.
		HighestOfferPremium  *float64
		LowestListingPremium *float64

		MarketDataUpdatedAt time.Time
	}
)

// Total returns the gross transaction amount (price × quantity) in cents.
func (t Transaction) Total() Money {
	return Money{Cents: t.Price.Cents * t.Quantity}
}
