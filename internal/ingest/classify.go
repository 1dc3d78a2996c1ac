package ingest

import (
	"math"

	"puremetrics/internal/core"
)

// DetermineEventType labels a trade by premium distance: an event priced
// near the lowest listing was a buy, one near the highest offer was a sell.
// Without both sides of the book there is nothing to compare against.
func DetermineEventType(premium float64, highestOffer, lowestListing *float64) core.EventType {
	if highestOffer == nil || lowestListing == nil {
		return core.EventUnknown
	}

	distToOffer := math.Abs(premium - *highestOffer)
	distToListing := math.Abs(premium - *lowestListing)
	if distToListing < distToOffer {
		return core.EventBuy
	}
	return core.EventSell
}
