package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	Bot    BotConfig
	Bus    BusConfig
	Log    LogConfig
	Status StatusConfig
	Store  StoreConfig
}

// LoadApp layers configuration: the optional file at path, then environment
// variables, then defaults for anything still unset.
func LoadApp(path string) (AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		if err := loadFile(path, &cfg.Bot, &cfg.Bus); err != nil {
			return AppConfig{}, err
		}
	}
	for _, target := range []any{&cfg.Bot, &cfg.Bus, &cfg.Log, &cfg.Status, &cfg.Store} {
		if err := env.Parse(target); err != nil {
			return AppConfig{}, fmt.Errorf("parse env: %w", err)
		}
	}
	cfg.Bot = cfg.Bot.withDefaults()
	cfg.Bus = cfg.Bus.withDefaults()
	return cfg, nil
}
