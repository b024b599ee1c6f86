package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// StoreConfig controls the optional game results log. An empty DSN disables it.
type StoreConfig struct {
	PostgresDSN string        `env:"POSTGRES_DSN"`
	Workers     int           `env:"RESULTS_WORKERS" envDefault:"1"`
	Buffer      int           `env:"RESULTS_BUFFER" envDefault:"256"`
	RetryMax    int           `env:"RESULTS_RETRY_MAX" envDefault:"3"`
	RetryBase   time.Duration `env:"RESULTS_RETRY_BASE" envDefault:"500ms"`
}

func LoadStore() (StoreConfig, error) {
	var cfg StoreConfig
	err := env.Parse(&cfg)
	return cfg, err
}
