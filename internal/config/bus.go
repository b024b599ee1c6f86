package config

import (
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// BusConfig is the "redisConfig" block of the config file.
type BusConfig struct {
	Host     string `json:"HOST" env:"REDIS_HOST"`
	Port     int    `json:"PORT" env:"REDIS_PORT"`
	Username string `json:"USERNAME" env:"REDIS_USERNAME"`
	Password string `json:"PASSWORD" env:"REDIS_PASSWORD"`
	TLS      bool   `json:"TLS" env:"REDIS_TLS"`

	PublishTimeout time.Duration `json:"-" env:"REDIS_PUBLISH_TIMEOUT" envDefault:"2s"`
	HealthInterval time.Duration `json:"-" env:"REDIS_HEALTH_INTERVAL" envDefault:"2s"`
}

func (c BusConfig) withDefaults() BusConfig {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port <= 0 {
		c.Port = 6379
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = 2 * time.Second
	}
	return c
}

func (c BusConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func LoadBus() (BusConfig, error) {
	var cfg BusConfig
	err := env.Parse(&cfg)
	return cfg.withDefaults(), err
}
