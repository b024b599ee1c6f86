package config

import (
	"errors"
	"testing"
)

func TestLogConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "bot.log")
	t.Setenv("LOG_MAX_MB", "3")

	cfg, err := LoadApp("")
	if err != nil {
		t.Fatalf("LoadApp() error = %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "bot.log" || cfg.Log.MaxMB != 3 {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if err := cfg.Log.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLogConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  LogConfig
		ok   bool
	}{
		{"defaults", LogConfig{Level: "info", MaxMB: 10}, true},
		{"empty level", LogConfig{}, true},
		{"upper case", LogConfig{Level: "WARN"}, true},
		{"unknown level", LogConfig{Level: "loud"}, false},
		{"negative sampling", LogConfig{Level: "info", SampleEvery: -1}, false},
		{"file without size", LogConfig{Level: "info", File: "out.log"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("Validate() error = %v, want ok=%v", err, tc.ok)
			}
		})
	}
	if err := (LogConfig{Level: "loud"}).Validate(); !errors.Is(err, ErrInvalidLogLevel) {
		t.Fatalf("Validate() error = %v, want ErrInvalidLogLevel", err)
	}
}
