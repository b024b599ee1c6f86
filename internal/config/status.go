package config

import "github.com/caarlos0/env/v11"

type StatusConfig struct {
	HTTPAddr    string `env:"STATUS_HTTP_ADDR"`
	EventBuffer int    `env:"STATUS_EVENT_BUFFER" envDefault:"500"`
}

func LoadStatus() (StatusConfig, error) {
	var cfg StatusConfig
	err := env.Parse(&cfg)
	return cfg, err
}
