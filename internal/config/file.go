package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

type fileConfig struct {
	Game  *BotConfig `json:"gameConfig"`
	Redis *BusConfig `json:"redisConfig"`
}

// loadFile decodes a JSON (comments and trailing commas allowed) config file
// into the given targets.
func loadFile(path string, bot *BotConfig, bus *BusConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	fc := fileConfig{Game: bot, Redis: bus}
	if err := json.Unmarshal(jsonc.ToJSON(raw), &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
