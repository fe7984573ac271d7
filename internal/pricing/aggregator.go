package pricing

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/medcompare/pharmacy-orchestrator/internal/metrics"
	"github.com/medcompare/pharmacy-orchestrator/internal/models"
	"github.com/medcompare/pharmacy-orchestrator/internal/patterns"
	"github.com/medcompare/pharmacy-orchestrator/internal/provider"
)

// Aggregator fans a price query out to every registered provider and
// collects exactly one quote per (provider, medicine) pair.
type Aggregator struct {
	clients []provider.Client
	timeout time.Duration
}

// NewAggregator creates an aggregator over the given clients. Iteration
// order of clients is the provider order preserved in every result group.
func NewAggregator(clients []provider.Client, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = patterns.DefaultTimeout
	}
	return &Aggregator{clients: clients, timeout: timeout}
}

// Compare issues one QuotePrices call per provider concurrently and groups
// the results by medicine name. A provider that errors or times out
// contributes a synthetic unavailable quote for every requested name, so
// partial provider failure never fails the comparison.
func (a *Aggregator) Compare(ctx context.Context, names []string) map[string][]models.PriceQuote {
	start := time.Now()
	defer func() {
		metrics.ComparisonDuration.Observe(time.Since(start).Seconds())
	}()

	// One result slot per provider keeps registration order stable no
	// matter which call finishes first.
	results := make([][]models.PriceQuote, len(a.clients))

	var wg sync.WaitGroup
	for i, client := range a.clients {
		wg.Add(1)
		go func(i int, client provider.Client) {
			defer wg.Done()

			callCtx, cancel := patterns.WithTimeout(ctx, a.timeout)
			defer cancel()

			quotes, err := client.QuotePrices(callCtx, names)
			providerID := client.Provider().ID
			if err != nil {
				log.WithFields(log.Fields{
					"provider":  providerID,
					"medicines": len(names),
				}).Warn("Quote call failed, degrading to unavailable: ", err)
				metrics.QuotesTotal.WithLabelValues(providerID, "degraded").Inc()
				results[i] = unavailableQuotes(providerID, names)
				return
			}
			metrics.QuotesTotal.WithLabelValues(providerID, "ok").Inc()
			results[i] = quotes
		}(i, client)
	}
	wg.Wait()

	grouped := make(map[string][]models.PriceQuote, len(names))
	for _, name := range names {
		grouped[name] = make([]models.PriceQuote, 0, len(a.clients))
	}
	for _, quotes := range results {
		for _, q := range quotes {
			grouped[q.Name] = append(grouped[q.Name], q)
		}
	}
	return grouped
}

// unavailableQuotes synthesizes an absent quote per requested name for a
// provider that failed to answer.
func unavailableQuotes(providerID string, names []string) []models.PriceQuote {
	quotes := make([]models.PriceQuote, len(names))
	for i, name := range names {
		quotes[i] = models.PriceQuote{
			ProviderID: providerID,
			Name:       name,
			Available:  false,
		}
	}
	return quotes
}
