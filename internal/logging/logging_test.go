package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cortex/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	if err := Init(config.LogConfig{Level: "debug", File: path, MaxMB: 1}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() {
		_ = Init(config.LogConfig{Level: "info"})
	})
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("GlobalLevel = %v, want debug", zerolog.GlobalLevel())
	}

	log.Debug().Str("bot_id", "cortex-abc").Msg("hello")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"bot_id":"cortex-abc"`) {
		t.Fatalf("log file missing record: %s", raw)
	}
	if Writer() == os.Stdout {
		t.Fatal("Writer() should point at the log file")
	}
}

func TestInitFallsBackToInfoOnBadLevel(t *testing.T) {
	if err := Init(config.LogConfig{Level: "loud"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("GlobalLevel = %v, want info", zerolog.GlobalLevel())
	}
	if Writer() != os.Stdout {
		t.Fatal("Writer() should default to stdout")
	}
}
