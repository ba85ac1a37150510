package config

import (
	"testing"
)

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by default")
	}
	if cfg.Audit.Enabled {
		t.Error("audit should be disabled by default")
	}
	if !cfg.WebSocket.Enabled || cfg.WebSocket.Path != "/ws" {
		t.Errorf("websocket defaults = %+v", cfg.WebSocket)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerSec != 20 {
		t.Errorf("rate limit defaults = %+v", cfg.RateLimit)
	}

	if err := validateConfig(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	t.Run("BadPort", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Server.Port = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("port 0 should be rejected")
		}
		cfg.Server.Port = 70000
		if err := validateConfig(cfg); err == nil {
			t.Error("port 70000 should be rejected")
		}
	})

	t.Run("BadLogLevel", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Logging.Level = "verbose"
		if err := validateConfig(cfg); err == nil {
			t.Error("unknown log level should be rejected")
		}
	})

	t.Run("BadLogFormat", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Logging.Format = "xml"
		if err := validateConfig(cfg); err == nil {
			t.Error("unknown log format should be rejected")
		}
	})

	t.Run("BadRateLimit", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.RateLimit.RequestsPerSec = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("zero requests/sec with limiting enabled should be rejected")
		}
		cfg.RateLimit.Enabled = false
		if err := validateConfig(cfg); err != nil {
			t.Errorf("disabled rate limiting should skip the check: %v", err)
		}
	})
}
