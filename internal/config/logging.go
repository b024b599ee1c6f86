package config

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidLogLevel = errors.New("invalid_log_level")

// LogConfig drives the zerolog setup. File, when set, replaces stdout and is
// truncated past MaxMB; SampleEvery above 1 keeps one record in N.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"error": true, "fatal": true, "panic": true, "disabled": true,
}

func (c LogConfig) Validate() error {
	if lvl := strings.ToLower(strings.TrimSpace(c.Level)); lvl != "" && !logLevels[lvl] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("LOG_SAMPLE_EVERY must not be negative, got %d", c.SampleEvery)
	}
	if c.File != "" && c.MaxMB < 1 {
		return fmt.Errorf("LOG_MAX_MB must be at least 1 when LOG_FILE is set, got %d", c.MaxMB)
	}
	return nil
}
