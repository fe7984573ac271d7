package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/medcompare/pharmacy-orchestrator/internal/models"
)

// Config holds all configuration for the orchestrator service
type Config struct {
	Port            string
	Providers       []models.Provider
	ProviderTimeout time.Duration
	IntentTTL       time.Duration
	BulkheadSize    int
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultProviderTimeout = 3 * time.Second
	DefaultIntentTTL       = 15 * time.Minute
	DefaultBulkheadSize    = 10
	// DefaultProviders mirrors the two-pharmacy demo setup
	DefaultProviders = "sitea|Site A (Premium)|http://localhost:3001,siteb|Site B (Budget)|http://localhost:3002"
)

// Load reads configuration from environment variables with fallbacks
func Load() (*Config, error) {
	providers, err := ParseProviders(getEnv("PROVIDERS", DefaultProviders))
	if err != nil {
		return nil, err
	}

	timeout, err := getDuration("PROVIDER_TIMEOUT", DefaultProviderTimeout)
	if err != nil {
		return nil, err
	}

	ttl, err := getDuration("INTENT_TTL", DefaultIntentTTL)
	if err != nil {
		return nil, err
	}

	bulkhead, err := getInt("BULKHEAD_SIZE", DefaultBulkheadSize)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:            getEnv("PORT", DefaultPort),
		Providers:       providers,
		ProviderTimeout: timeout,
		IntentTTL:       ttl,
		BulkheadSize:    bulkhead,
	}, nil
}

// ParseProviders parses a comma-separated list of "id|name|baseURL" entries.
func ParseProviders(raw string) ([]models.Provider, error) {
	var providers []models.Provider
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid provider entry %q: want id|name|baseURL", entry)
		}
		id := strings.TrimSpace(parts[0])
		name := strings.TrimSpace(parts[1])
		baseURL := strings.TrimSpace(parts[2])
		if id == "" || name == "" || baseURL == "" {
			return nil, fmt.Errorf("invalid provider entry %q: empty field", entry)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate provider id %q", id)
		}
		seen[id] = true
		providers = append(providers, models.Provider{ID: id, Name: name, BaseURL: baseURL})
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	return providers, nil
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
