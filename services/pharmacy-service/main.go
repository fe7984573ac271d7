package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/medcompare/pharmacy-orchestrator/internal/models"
	"github.com/medcompare/pharmacy-orchestrator/internal/pharmacy"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	profile := getEnv("PHARMACY_PROFILE", "premium")

	var (
		id      string
		name    string
		catalog []models.CatalogEntry
		port    string
	)
	switch profile {
	case "premium":
		id, name, port = "sitea", "Site A (Premium)", "3001"
		catalog = pharmacy.PremiumCatalog()
	case "budget":
		id, name, port = "siteb", "Site B (Budget)", "3002"
		catalog = pharmacy.BudgetCatalog()
	default:
		log.Fatal("Unknown PHARMACY_PROFILE: ", profile)
	}
	port = getEnv("PORT", port)

	store := pharmacy.New(id, name, catalog)
	router := pharmacy.NewRouter(store)

	log.WithFields(log.Fields{
		"pharmacy":  id,
		"profile":   profile,
		"port":      port,
		"medicines": len(catalog),
	}).Info("Pharmacy Service starting")

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
