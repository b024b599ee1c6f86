package store

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// recordID stamps a result id with the game's finish time, so ids order games
// the way they ended even when the recorder retries out of order. A zero time
// falls back to now.
func recordID(finishedAt time.Time) string {
	ms := ulid.Now()
	if !finishedAt.IsZero() {
		ms = ulid.Timestamp(finishedAt)
	}
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ms, idEntropy).String()
}
