package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "phoenixing", cfg.Logger.ServiceName)

	assert.Equal(t, "https://api.company-information.service.gov.uk", cfg.Registry.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Registry.RequestTimeout)
	assert.Equal(t, 5.0, cfg.Registry.RateLimit)
	assert.Equal(t, 5, cfg.Registry.RateBurst)
	assert.Empty(t, cfg.Registry.APIKey, "credentials never have defaults")

	assert.Equal(t, "risk_percentage", cfg.RecordStore.RiskColumn)
	assert.Contains(t, cfg.RecordStore.SearchColumns, "company_name")
	assert.Equal(t, 100, cfg.RecordStore.PerPage)
	assert.Equal(t, 10000, cfg.RecordStore.MaxSafePage)
	assert.Equal(t, 5*time.Minute, cfg.RecordStore.StatsTTL)

	assert.Equal(t, 4, cfg.Scan.Concurrency)
	assert.Equal(t, 730, cfg.Scan.RecentFormationWindowDays)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestNewFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("registry.rate_limit", 2.5)
	v.Set("recordstore.base_url", "https://store.example.com/rest/v1/companies")
	v.Set("scan.concurrency", 8)

	cfg, err := NewFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Registry.RateLimit)
	assert.Equal(t, "https://store.example.com/rest/v1/companies", cfg.RecordStore.BaseURL)
	assert.Equal(t, 8, cfg.Scan.Concurrency)
}

func TestNewFromViperReadsCredentialEnv(t *testing.T) {
	t.Setenv("PHOENIX_REGISTRY_API_KEY", "registry-secret")
	t.Setenv("PHOENIX_RECORDSTORE_API_KEY", "store-secret")

	v := viper.New()
	SetDefaults(v)

	cfg, err := NewFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "registry-secret", cfg.Registry.APIKey)
	assert.Equal(t, "store-secret", cfg.RecordStore.APIKey)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing registry base url",
			mutate:  func(c *Config) { c.Registry.BaseURL = "" },
			wantErr: "registry.base_url",
		},
		{
			name:    "non-positive rate limit",
			mutate:  func(c *Config) { c.Registry.RateLimit = 0 },
			wantErr: "registry.rate_limit",
		},
		{
			name:    "non-positive concurrency",
			mutate:  func(c *Config) { c.Scan.Concurrency = -1 },
			wantErr: "scan.concurrency",
		},
		{
			name:    "non-positive formation window",
			mutate:  func(c *Config) { c.Scan.RecentFormationWindowDays = 0 },
			wantErr: "recent_formation_window_days",
		},
		{
			name:    "non-positive per page",
			mutate:  func(c *Config) { c.RecordStore.PerPage = 0 },
			wantErr: "recordstore.per_page",
		},
		{
			name:    "non-positive max safe page",
			mutate:  func(c *Config) { c.RecordStore.MaxSafePage = 0 },
			wantErr: "recordstore.max_safe_page",
		},
		{
			name:    "non-positive stats ttl",
			mutate:  func(c *Config) { c.RecordStore.StatsTTL = 0 },
			wantErr: "recordstore.stats_ttl",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
