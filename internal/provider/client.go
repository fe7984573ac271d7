package provider

import (
	"context"

	"github.com/medcompare/pharmacy-orchestrator/internal/models"
)

// Client is the fixed capability set the orchestrator consumes from one
// pharmacy provider. Every call is remote and may fail with a
// provider_unavailable error, distinct from the provider's own business
// errors (not_found, insufficient_stock).
type Client interface {
	// Provider returns the static identity of the backend this client talks to.
	Provider() models.Provider

	// Search returns catalog entries matching name (case-insensitive
	// substring on name or category). An empty result is not an error.
	Search(ctx context.Context, name string) ([]models.CatalogEntry, error)

	// GetMedicine fetches one catalog entry by its provider-local id.
	GetMedicine(ctx context.Context, id string) (*models.CatalogEntry, error)

	// QuotePrices returns exactly one quote per requested name, in request
	// order.
	QuotePrices(ctx context.Context, names []string) ([]models.PriceQuote, error)

	// PlaceOrder places an order with the provider. The provider applies it
	// atomically: either every line is committed or none is.
	PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (*models.Order, error)

	// GetOrder fetches the provider's view of an order it owns.
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}
