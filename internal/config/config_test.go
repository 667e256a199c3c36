package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 120*time.Second, cfg.Dispatch.LocationTTL)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.OfferExpiry)
	assert.Equal(t, 30.0, cfg.Dispatch.AssumedSpeedKMH)
	assert.Equal(t, 5.0, cfg.Dispatch.SearchRadiusKM)
	assert.Equal(t, 10, cfg.Dispatch.MaxCandidates)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DISPATCH_LOCATION_TTL_SECONDS", "45")
	t.Setenv("DISPATCH_ASSUMED_SPEED_KMH", "24.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Dispatch.LocationTTL)
	assert.Equal(t, 24.5, cfg.Dispatch.AssumedSpeedKMH)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Host: "localhost", Name: "swiftdrop"},
			Redis:    RedisConfig{Host: "localhost"},
			Dispatch: DispatchConfig{
				LocationTTL:     time.Minute,
				OfferExpiry:     30 * time.Second,
				AssumedSpeedKMH: 30,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing server port", func(c *Config) { c.Server.Port = "" }, true},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing db name", func(c *Config) { c.Database.Name = "" }, true},
		{"missing redis host", func(c *Config) { c.Redis.Host = "" }, true},
		{"zero location ttl", func(c *Config) { c.Dispatch.LocationTTL = 0 }, true},
		{"zero offer expiry", func(c *Config) { c.Dispatch.OfferExpiry = 0 }, true},
		{"non-positive speed", func(c *Config) { c.Dispatch.AssumedSpeedKMH = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
