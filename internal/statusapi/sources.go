package statusapi

import (
	"context"
	"encoding/json"

	"cortex/internal/store"
)

// BusReader is the part of *bus.Client behind /healthz and the archive routes.
type BusReader interface {
	Ping(ctx context.Context) error
	GetKeys(ctx context.Context, name string, keys ...string) (map[string]json.RawMessage, error)
	GetAllKeys(ctx context.Context, name string) (map[string]json.RawMessage, error)
}

// ResultReader is the part of *store.Store behind the results routes.
type ResultReader interface {
	ListRecent(ctx context.Context, botID string, limit int) ([]store.GameRecord, error)
	GetByReplay(ctx context.Context, replayID string) (store.GameRecord, error)
}

// Sources are the optional read backends. A nil field turns its routes into
// 404s.
type Sources struct {
	Bus     BusReader
	Results ResultReader
}
