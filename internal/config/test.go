package config

import "github.com/caarlos0/env/v11"

// TestDBConfig points store tests at a scratch Postgres. Each test creates
// its own schema named SchemaPrefix plus a timestamp and drops it afterwards.
type TestDBConfig struct {
	DSN          string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
	SchemaPrefix string `env:"TEST_SCHEMA_PREFIX" envDefault:"cortex_test"`
}

func LoadTestDB() (TestDBConfig, error) {
	var cfg TestDBConfig
	if err := env.Parse(&cfg); err != nil {
		return TestDBConfig{}, err
	}
	return cfg, nil
}
