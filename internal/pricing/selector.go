package pricing

import (
	"math"
	"sort"

	"github.com/medcompare/pharmacy-orchestrator/internal/models"
)

// Rank orders the quotes for one medicine: available offers first, by
// selection rank (ascending price, then descending rating, then ascending
// delivery days, then provider id), unavailable offers after in their input
// order. The total order makes the winner independent of input order and of
// how many providers are registered.
func Rank(quotes []models.PriceQuote) []models.PriceQuote {
	ranked := make([]models.PriceQuote, 0, len(quotes))
	var unavailable []models.PriceQuote
	for _, q := range quotes {
		if q.Available {
			ranked = append(ranked, q)
		} else {
			unavailable = append(unavailable, q)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j])
	})

	return append(ranked, unavailable...)
}

// Choose returns the provider id of the best available offer that can cover
// the requested quantity, or "" when no offer survives. A quantity of zero
// means the quantity is unknown and the stock filter is skipped.
func Choose(quotes []models.PriceQuote, quantity int) string {
	for _, q := range Rank(quotes) {
		if !q.Available {
			break
		}
		if quantity > 0 && q.Stock < quantity {
			continue
		}
		return q.ProviderID
	}
	return ""
}

func rankLess(a, b models.PriceQuote) bool {
	if pa, pb := priceOf(a), priceOf(b); pa != pb {
		return pa < pb
	}
	if ra, rb := ratingOf(a), ratingOf(b); ra != rb {
		return ra > rb
	}
	if da, db := deliveryOf(a), deliveryOf(b); da != db {
		return da < db
	}
	return a.ProviderID < b.ProviderID
}

// The accessors tolerate quotes that violate the availability invariant
// instead of dereferencing a nil field: a malformed quote ranks last.

func priceOf(q models.PriceQuote) float64 {
	if q.Price == nil {
		return math.MaxFloat64
	}
	return *q.Price
}

func ratingOf(q models.PriceQuote) float64 {
	if q.Rating == nil {
		return -1
	}
	return *q.Rating
}

func deliveryOf(q models.PriceQuote) int {
	if q.DeliveryDays == nil {
		return math.MaxInt32
	}
	return *q.DeliveryDays
}
