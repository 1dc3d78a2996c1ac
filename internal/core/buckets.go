package core

import (
	"math"
	"sort"
)

// DailyBucket is one calendar day of classified demand, in display dollars.
// The date is the YYYY-MM-DD truncation of event_time in UTC, with no
// timezone conversion. Both amounts are always present, defaulting to zero.
type DailyBucket struct {
	Date       string  `json:"date"`
	BuyAmount  float64 `json:"buy_amount"`
	SellAmount float64 `json:"sell_amount"`
}

// BucketByDay folds transactions into per-day buy/sell dollar totals,
// sorted by date ascending (lexicographic on YYYY-MM-DD, which equals
// chronological order). Amounts are rounded to two decimals once, after
// summation. Unknown-classified transactions contribute to neither
// accumulator and never create a bucket on their own.
func BucketByDay(txs []Transaction) []DailyBucket {
	type acc struct {
		buy  float64
		sell float64
	}
	byDate := make(map[string]*acc)

	for _, t := range txs {
		class := Classify(t)
		if class == ClassUnknown {
			continue
		}
		date := t.EventTime.UTC().Format("2006-01-02")
		a := byDate[date]
		if a == nil {
			a = &acc{}
			byDate[date] = a
		}
		amount := float64(t.Price.Cents*t.Quantity) / 100
		if class == ClassBuy {
			a.buy += amount
		} else {
			a.sell += amount
		}
	}

	buckets := make([]DailyBucket, 0, len(byDate))
	for date, a := range byDate {
		buckets = append(buckets, DailyBucket{
			Date:       date,
			BuyAmount:  round2(a.buy),
			SellAmount: round2(a.sell),
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date < buckets[j].Date
	})
	return buckets
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
