package config

import "testing"

func TestLoadBusDefaults(t *testing.T) {
	cfg, err := LoadBus()
	if err != nil {
		t.Fatalf("LoadBus() error = %v", err)
	}
	if cfg.Addr() != "localhost:6379" {
		t.Fatalf("Addr() = %q, want localhost:6379", cfg.Addr())
	}
	if cfg.TLS {
		t.Fatal("TLS should default to false")
	}
}

func TestLoadBusOverrides(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_USERNAME", "bot")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_TLS", "true")

	cfg, err := LoadBus()
	if err != nil {
		t.Fatalf("LoadBus() error = %v", err)
	}
	if cfg.Addr() != "redis.internal:6380" {
		t.Fatalf("Addr() = %q", cfg.Addr())
	}
	if cfg.Username != "bot" || cfg.Password != "secret" || !cfg.TLS {
		t.Fatalf("unexpected bus config: %+v", cfg)
	}
}
