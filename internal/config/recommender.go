package config

import "github.com/caarlos0/env/v11"

type RecommenderConfig struct {
	Name       string `env:"RECOMMENDER_NAME" envDefault:"dumb"`
	BoardTiles int    `env:"BOARD_TILES" envDefault:"400"`
	Moves      int    `env:"RECOMMENDER_MOVES" envDefault:"1"`
}

func LoadRecommender() (RecommenderConfig, error) {
	var cfg RecommenderConfig
	err := env.Parse(&cfg)
	return cfg, err
}
