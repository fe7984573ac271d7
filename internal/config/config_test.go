package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviders(t *testing.T) {
	providers, err := ParseProviders("sitea|Site A (Premium)|http://localhost:3001,siteb|Site B (Budget)|http://localhost:3002")
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "sitea", providers[0].ID)
	assert.Equal(t, "Site A (Premium)", providers[0].Name)
	assert.Equal(t, "http://localhost:3001", providers[0].BaseURL)
	assert.Equal(t, "siteb", providers[1].ID)
}

func TestParseProviders_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing fields": "sitea|http://localhost:3001",
		"empty field":    "sitea||http://localhost:3001",
		"duplicate id":   "a|A|http://x,a|B|http://y",
		"empty list":     " , ",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProviders(raw)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 15*time.Minute, cfg.IntentTTL)
	assert.Equal(t, DefaultBulkheadSize, cfg.BulkheadSize)
	assert.Len(t, cfg.Providers, 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PROVIDER_TIMEOUT", "500ms")
	t.Setenv("INTENT_TTL", "1m")
	t.Setenv("PROVIDERS", "p1|Pharmacy One|http://p1:3001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.ProviderTimeout)
	assert.Equal(t, time.Minute, cfg.IntentTTL)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "p1", cfg.Providers[0].ID)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}
