package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcompare/pharmacy-orchestrator/internal/models"
)

func quote(providerID string, price float64, rating float64, deliveryDays, stock int) models.PriceQuote {
	return models.PriceQuote{
		ProviderID:   providerID,
		Name:         "Aspirin 500mg",
		Available:    true,
		Price:        &price,
		Rating:       &rating,
		DeliveryDays: &deliveryDays,
		Stock:        stock,
	}
}

func unavailable(providerID string) models.PriceQuote {
	return models.PriceQuote{ProviderID: providerID, Name: "Aspirin 500mg", Available: false}
}

func TestChoose_LowerPriceWins(t *testing.T) {
	quotes := []models.PriceQuote{
		quote("sitea", 250, 4.8, 1, 150),
		quote("siteb", 180, 4.3, 3, 300),
	}
	assert.Equal(t, "siteb", Choose(quotes, 0))
	assert.Equal(t, "siteb", Choose(quotes, 10))
}

func TestChoose_SingleAvailableProvider(t *testing.T) {
	quotes := []models.PriceQuote{
		unavailable("sitea"),
		quote("siteb", 120, 4.1, 2, 400),
	}
	assert.Equal(t, "siteb", Choose(quotes, 0))
}

func TestChoose_NoneAvailable(t *testing.T) {
	quotes := []models.PriceQuote{unavailable("sitea"), unavailable("siteb")}
	assert.Equal(t, "", Choose(quotes, 0))
	assert.Equal(t, "", Choose(nil, 0))
}

func TestChoose_StockFilter(t *testing.T) {
	quotes := []models.PriceQuote{
		quote("sitea", 250, 4.8, 1, 150),
		quote("siteb", 180, 4.3, 3, 5),
	}
	// siteb is cheaper but cannot cover the quantity
	assert.Equal(t, "sitea", Choose(quotes, 10))
	// quantity unknown: cheapest wins regardless of stock
	assert.Equal(t, "siteb", Choose(quotes, 0))
	// nobody can cover the quantity
	assert.Equal(t, "", Choose(quotes, 1000))
}

func TestChoose_TieBreaks(t *testing.T) {
	t.Run("rating breaks price tie", func(t *testing.T) {
		quotes := []models.PriceQuote{
			quote("sitea", 100, 4.2, 2, 50),
			quote("siteb", 100, 4.8, 2, 50),
		}
		assert.Equal(t, "siteb", Choose(quotes, 0))
	})

	t.Run("delivery breaks rating tie", func(t *testing.T) {
		quotes := []models.PriceQuote{
			quote("sitea", 100, 4.5, 3, 50),
			quote("siteb", 100, 4.5, 1, 50),
		}
		assert.Equal(t, "siteb", Choose(quotes, 0))
	})

	t.Run("provider id breaks full tie", func(t *testing.T) {
		quotes := []models.PriceQuote{
			quote("siteb", 100, 4.5, 2, 50),
			quote("sitea", 100, 4.5, 2, 50),
		}
		assert.Equal(t, "sitea", Choose(quotes, 0))
	})
}

func TestChoose_DeterministicAcrossInputOrder(t *testing.T) {
	a := quote("sitea", 100, 4.5, 2, 50)
	b := quote("siteb", 100, 4.5, 2, 50)
	c := quote("sitec", 95, 4.0, 5, 50)

	permutations := [][]models.PriceQuote{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	for _, perm := range permutations {
		assert.Equal(t, "sitec", Choose(perm, 0))
	}
}

func TestRank_AvailableFirstUnavailableLast(t *testing.T) {
	quotes := []models.PriceQuote{
		unavailable("sitec"),
		quote("sitea", 250, 4.8, 1, 150),
		quote("siteb", 180, 4.3, 3, 300),
	}
	ranked := Rank(quotes)
	require.Len(t, ranked, 3)
	assert.Equal(t, "siteb", ranked[0].ProviderID)
	assert.Equal(t, "sitea", ranked[1].ProviderID)
	assert.Equal(t, "sitec", ranked[2].ProviderID)
	assert.False(t, ranked[2].Available)
}

func TestRank_MalformedQuoteRanksLast(t *testing.T) {
	// available=true with nil numerics violates the quote invariant; the
	// selector must not panic and must prefer any well-formed quote
	broken := models.PriceQuote{ProviderID: "sitea", Name: "Aspirin 500mg", Available: true}
	quotes := []models.PriceQuote{broken, quote("siteb", 180, 4.3, 3, 300)}

	ranked := Rank(quotes)
	require.Len(t, ranked, 2)
	assert.Equal(t, "siteb", ranked[0].ProviderID)
	assert.Equal(t, "siteb", Choose(quotes, 0))
}
