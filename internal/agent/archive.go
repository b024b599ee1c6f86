package agent

import (
	"context"
	"time"

	"cortex/internal/protocol"
	"cortex/internal/session"

	"github.com/rs/zerolog/log"
)

const archiveTimeout = 2 * time.Second

// Archive is the keyspace subset of *bus.Client used to keep a per-game
// record in Redis.
type Archive interface {
	SetKeyspace(name string)
	SetKeys(ctx context.Context, values map[string]any) error
	ListPush(ctx context.Context, list string, v any) error
	ExpireKeyspace(ctx context.Context, ttl time.Duration) error
}

// archiver writes each game under a keyspace named after its replay id.
// Failures are logged and never reach the session.
type archiver struct {
	botID  string
	store  Archive
	ttl    time.Duration
	active bool
}

func newArchiver(botID string, store Archive, ttl time.Duration) *archiver {
	return &archiver{botID: botID, store: store, ttl: ttl}
}

func (w *archiver) attach(notes *session.Notifications) {
	notes.GameStart.On(w.start)
	notes.Outcome.On(w.finish)
}

func (w *archiver) start(s session.State) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	w.store.SetKeyspace(s.ReplayID)
	w.active = true
	err := w.store.SetKeys(ctx, map[string]any{
		"replay_id":   s.ReplayID,
		"playerIndex": s.PlayerIndex,
		"usernames":   s.Usernames,
		"bot_id":      w.botID,
	})
	w.check(err, s.ReplayID, "archive game start failed")
}

func (w *archiver) turn(ctx context.Context, u protocol.GameUpdate) {
	if !w.active {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	w.check(w.store.ListPush(ctx, "turns", u), "", "archive turn failed")
}

func (w *archiver) finish(r session.GameResult) {
	if !w.active {
		return
	}
	w.active = false
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	w.check(w.store.SetKeys(ctx, map[string]any{"won": r.Won}), r.ReplayID, "archive outcome failed")
	w.check(w.store.ExpireKeyspace(ctx, w.ttl), r.ReplayID, "archive expire failed")
}

func (w *archiver) check(err error, replayID, msg string) {
	if err == nil {
		return
	}
	metricArchiveErrorsTotal.Add(1)
	log.Warn().Err(err).Str("replay_id", replayID).Msg(msg)
}
