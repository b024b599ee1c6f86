package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

var (
	ErrMissingUserID = errors.New("missing_user_id")
	ErrMissingGameID = errors.New("missing_custom_game_id")
)

// BotConfig is the "gameConfig" block of the config file. Environment
// variables win over file values; zero values fall back to defaults.
type BotConfig struct {
	BotIDPrefix  string `json:"BOT_ID_PREFIX" env:"BOT_ID_PREFIX"`
	UserID       string `json:"userId" env:"BOT_USER_ID"`
	CustomGameID string `json:"customGameId" env:"CUSTOM_GAME_ID"`
	AutoPlay     int    `json:"autoPlay" env:"AUTO_PLAY_GAMES"`
	ArchiveGames bool   `json:"archiveGames" env:"ARCHIVE_GAMES"`

	ProbeDelay  time.Duration `json:"-" env:"STATUS_PROBE_DELAY" envDefault:"5s"`
	RejoinDelay time.Duration `json:"-" env:"REJOIN_DELAY" envDefault:"1s"`
	ArchiveTTL  time.Duration `json:"-" env:"ARCHIVE_TTL" envDefault:"24h"`
}

func (c BotConfig) withDefaults() BotConfig {
	if c.BotIDPrefix == "" {
		c.BotIDPrefix = "cortex"
	}
	if c.ProbeDelay <= 0 {
		c.ProbeDelay = 5 * time.Second
	}
	if c.RejoinDelay <= 0 {
		c.RejoinDelay = time.Second
	}
	if c.ArchiveTTL <= 0 {
		c.ArchiveTTL = 24 * time.Hour
	}
	return c
}

func (c BotConfig) Validate() error {
	if c.UserID == "" {
		return ErrMissingUserID
	}
	if c.CustomGameID == "" {
		return ErrMissingGameID
	}
	return nil
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg.withDefaults(), err
}
