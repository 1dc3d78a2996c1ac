package core

// Classification is the effective buy/sell label a transaction renders and
// aggregates under. It is derived, never stored.
type Classification string

const (
	ClassBuy     Classification = "buy"
	ClassSell    Classification = "sell"
	ClassUnknown Classification = "unknown"
)

// PriorityVariantLabel marks direct-purchase priority listings. Activity on
// these variants is always a buy, whatever the stored event type says.
const PriorityVariantLabel = "Pure Priority"

// Classify maps a transaction to its effective label. Every place that
// renders or aggregates a buy/sell distinction goes through this function.
func Classify(t Transaction) Classification {
	if t.VariantLabel == PriorityVariantLabel {
		return ClassBuy
	}
	switch t.EventType {
	case EventBuy:
		return ClassBuy
	case EventSell:
		return ClassSell
	}
	return ClassUnknown
}
