package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/medcompare/pharmacy-orchestrator/internal/config"
	"github.com/medcompare/pharmacy-orchestrator/internal/orchestrator"
	"github.com/medcompare/pharmacy-orchestrator/internal/patterns"
	"github.com/medcompare/pharmacy-orchestrator/internal/pricing"
	"github.com/medcompare/pharmacy-orchestrator/internal/provider"
	"github.com/medcompare/pharmacy-orchestrator/internal/server"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	clients := make([]provider.Client, 0, len(cfg.Providers))
	circuits := make(map[string]*patterns.CircuitBreakerWrapper, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if err := provider.ValidateBaseURL(p.BaseURL); err != nil {
			log.Fatal("Invalid provider configuration: ", err)
		}
		client := provider.NewHTTPClient(p, cfg.ProviderTimeout, cfg.BulkheadSize)
		clients = append(clients, client)
		circuits[p.ID] = client.Circuit()
	}

	aggregator := pricing.NewAggregator(clients, cfg.ProviderTimeout)
	intents := orchestrator.NewIntentStore(cfg.IntentTTL)
	defer intents.Close()

	orch := orchestrator.New(clients, aggregator, intents)
	srv := server.NewServer(orch, circuits)

	log.WithFields(log.Fields{
		"port":       cfg.Port,
		"providers":  len(cfg.Providers),
		"intent_ttl": cfg.IntentTTL.String(),
	}).Info("Orchestrator Service starting")

	if err := srv.Engine().Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
