package session

import (
	"context"
	"fmt"
	"time"

	"cortex/internal/protocol"

	"github.com/rs/zerolog/log"
)

// Relay decides when to join a game and which recommendations become actions.
// A join goes out only while games are pending and the session is CONNECTED;
// the next chance to join comes from the next transition back to CONNECTED.
type Relay struct {
	pub    Publisher
	notes  *Notifications
	gameID string
	now    func() time.Time
	phase  func() Phase

	counters Counters
}

func newRelay(opts Options, phase func() Phase) *Relay {
	return &Relay{
		pub:    opts.Publisher,
		notes:  opts.Notifications,
		gameID: opts.GameID,
		now:    opts.Now,
		phase:  phase,
	}
}

func (r *Relay) Counters() Counters { return r.counters }

func (r *Relay) RequestGames(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidGameCount, n)
	}
	r.counters.Pending += n
	log.Info().Int("requested", n).Int("pending", r.counters.Pending).Msg("games requested")
	if r.phase() == PhaseConnected {
		r.tryJoin(ctx)
	}
	r.notes.Counters.Emit(r.counters)
	return nil
}

// StopGames clears the pending count. Games the server already queued are
// not retracted.
func (r *Relay) StopGames() {
	r.counters.Pending = 0
	log.Info().Msg("pending games cleared")
	r.notes.Counters.Emit(r.counters)
}

func (r *Relay) tryJoin(ctx context.Context) {
	phase := r.phase()
	if r.counters.Pending <= 0 || phase != PhaseConnected {
		metricJoinSkippedTotal.Add(1)
		log.Debug().Int("pending", r.counters.Pending).Stringer("phase", phase).Msg("join not attempted")
		return
	}
	if err := r.pub.Publish(ctx, protocol.ChannelCommand, protocol.Join(r.gameID)); err != nil {
		metricPublishErrorsTotal.Add(1)
		log.Error().Err(err).Str("game_id", r.gameID).Msg("publish join failed")
		return
	}
	metricJoinsTotal.Add(1)
	log.Info().Str("game_id", r.gameID).Int("pending", r.counters.Pending).Msg("join sent")
}

func (r *Relay) gameStarted() {
	if r.counters.Pending > 0 {
		r.counters.Pending--
	}
}

func (r *Relay) recordOutcome(won bool) {
	if won {
		r.counters.Won++
	} else {
		r.counters.Lost++
	}
}

// OnRecommendation forwards every recommendation received during a game to
// the action channel, stamped with its receipt time.
func (r *Relay) OnRecommendation(ctx context.Context, rec protocol.Recommendation) {
	if phase := r.phase(); phase != PhasePlaying {
		metricDroppedTotal.Add(1)
		log.Warn().Str("recommender", rec.Recommender).Stringer("phase", phase).Msg("drop recommendation outside game")
		return
	}
	stamped, err := rec.Stamped(r.now())
	if err != nil {
		metricDroppedTotal.Add(1)
		log.Error().Err(err).Str("recommender", rec.Recommender).Msg("stamp recommendation failed")
		return
	}
	log.Debug().Str("recommender", rec.Recommender).Int("moves", len(rec.Actions)).Msg("recommendation received")
	r.notes.Recommendation.Emit(stamped.Clone())
	if err := r.pub.Publish(ctx, protocol.ChannelAction, stamped); err != nil {
		metricPublishErrorsTotal.Add(1)
		log.Error().Err(err).Str("recommender", rec.Recommender).Msg("forward action failed")
		return
	}
	metricForwardedTotal.Add(1)
}

// OnAction surfaces an action seen on the action channel for display only.
func (r *Relay) OnAction(rec protocol.Recommendation) {
	if phase := r.phase(); phase != PhasePlaying {
		metricDroppedTotal.Add(1)
		log.Warn().Str("recommender", rec.Recommender).Stringer("phase", phase).Msg("drop action outside game")
		return
	}
	r.notes.Action.Emit(rec.Clone())
}
