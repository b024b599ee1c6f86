// Package session folds the state, game update, recommendation and action
// channels into one session view. A Machine and its Relay are not safe for
// concurrent use: the owner must call them from a single goroutine.
package session

import (
	"context"
	"time"

	"cortex/internal/protocol"

	"github.com/rs/zerolog/log"
)

type Publisher interface {
	Publish(ctx context.Context, channel protocol.Channel, payload any) error
}

// Scheduler runs fn after d on the owner's goroutine. Pending work is dropped
// when the owner shuts down.
type Scheduler interface {
	Schedule(d time.Duration, fn func(ctx context.Context))
}

type Options struct {
	GameID        string
	ProbeDelay    time.Duration
	RejoinDelay   time.Duration
	Publisher     Publisher
	Scheduler     Scheduler
	Notifications *Notifications
	Now           func() time.Time
}

type transition struct {
	from []Phase
	to   Phase
}

// A nil from list means the tag applies in any phase.
var transitions = map[protocol.StateTag]transition{
	protocol.TagConnected:    {to: PhaseConnected},
	protocol.TagDisconnected: {from: []Phase{PhaseConnected}, to: PhaseInitializing},
	protocol.TagJoined:       {from: []Phase{PhaseConnected}, to: PhaseJoinedLobby},
	protocol.TagLeft:         {from: []Phase{PhaseJoinedLobby}, to: PhaseConnected},
	protocol.TagPlaying:      {from: []Phase{PhaseJoinedLobby, PhasePlaying}, to: PhasePlaying},
	protocol.TagGameLost:     {from: []Phase{PhasePlaying}, to: PhaseConnected},
	protocol.TagGameWon:      {from: []Phase{PhasePlaying}, to: PhaseConnected},
	protocol.TagGameStart:    {to: PhasePlaying},
}

func (t transition) allows(p Phase) bool {
	if t.from == nil {
		return true
	}
	for _, f := range t.from {
		if f == p {
			return true
		}
	}
	return false
}

type Machine struct {
	pub         Publisher
	sched       Scheduler
	notes       *Notifications
	now         func() time.Time
	probeDelay  time.Duration
	rejoinDelay time.Duration

	state   State
	history ReplayHistory
	relay   *Relay
}

func NewMachine(opts Options) *Machine {
	if opts.Notifications == nil {
		opts.Notifications = NewNotifications()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ProbeDelay <= 0 {
		opts.ProbeDelay = 5 * time.Second
	}
	if opts.RejoinDelay <= 0 {
		opts.RejoinDelay = time.Second
	}
	m := &Machine{
		pub:         opts.Publisher,
		sched:       opts.Scheduler,
		notes:       opts.Notifications,
		now:         opts.Now,
		probeDelay:  opts.ProbeDelay,
		rejoinDelay: opts.RejoinDelay,
		state:       State{Phase: PhaseInitializing},
	}
	m.relay = newRelay(opts, m.Phase)
	return m
}

func (m *Machine) Relay() *Relay { return m.relay }

func (m *Machine) Notifications() *Notifications { return m.notes }

func (m *Machine) Phase() Phase { return m.state.Phase }

func (m *Machine) Snapshot() State { return m.state.Clone() }

func (m *Machine) History() []string { return m.history.Snapshot() }

// ApplyState applies one state channel message. Unknown tags and tags not
// valid in the current phase leave the session untouched.
func (m *Machine) ApplyState(ctx context.Context, ev protocol.StateEvent) {
	from := m.state.Phase
	logger := log.With().Str("tag", string(ev.Tag)).Stringer("phase", from).Logger()

	t, ok := transitions[ev.Tag]
	if !ok {
		metricUnknownTagsTotal.Add(1)
		logger.Info().Msg("ignore unknown state tag")
		return
	}
	if !t.allows(from) {
		metricViolationsTotal.Add(1)
		logger.Warn().Msg("state message not valid in current phase")
		return
	}
	if ev.Tag == protocol.TagGameStart && ev.GameStart == nil {
		metricViolationsTotal.Add(1)
		logger.Warn().Msg("game_start without body")
		return
	}

	switch ev.Tag {
	case protocol.TagGameStart:
		m.state = newGameState(*ev.GameStart)
		m.relay.gameStarted()
		m.history.add(ev.GameStart.ReplayID)
		m.notes.GameStart.Emit(m.state.Clone())
		m.notes.Playing.Emit(struct{}{})
		m.notes.Replay.Emit(m.history.Snapshot())
	case protocol.TagGameWon, protocol.TagGameLost:
		won := ev.Tag == protocol.TagGameWon
		m.state.Phase = t.to
		m.state.Outcome = &won
		m.relay.recordOutcome(won)
		m.notes.Outcome.Emit(m.result(won))
	default:
		m.state.Phase = t.to
	}
	metricTransitionsTotal.Add(1)
	logger.Debug().Stringer("to", m.state.Phase).Msg("session transition")

	switch ev.Tag {
	case protocol.TagConnected:
		m.relay.tryJoin(ctx)
	case protocol.TagDisconnected:
		m.sched.Schedule(m.probeDelay, m.probeStatus)
	case protocol.TagJoined:
		m.notes.Joined.Emit(struct{}{})
	case protocol.TagLeft:
		m.sched.Schedule(m.rejoinDelay, m.relay.tryJoin)
	case protocol.TagPlaying:
		m.notes.Playing.Emit(struct{}{})
	}

	m.notes.Counters.Emit(m.relay.Counters())
	m.notes.Update.Emit(m.state.Clone())
	m.notes.Phase.Emit(m.state.Phase)
}

// ApplyGameUpdate overwrites turn and scores. It does not look at the phase:
// an update may arrive just before or after the matching state message.
func (m *Machine) ApplyGameUpdate(u protocol.GameUpdate) {
	metricGameUpdatesTotal.Add(1)
	m.state.Turn = u.Turn
	m.state.Scores = append([]protocol.Score(nil), u.Scores...)
	m.notes.Update.Emit(m.state.Clone())
}

func (m *Machine) probeStatus(ctx context.Context) {
	if err := m.pub.Publish(ctx, protocol.ChannelCommand, protocol.StatusProbe()); err != nil {
		metricPublishErrorsTotal.Add(1)
		log.Error().Err(err).Msg("publish status probe failed")
		return
	}
	log.Debug().Msg("status probe sent")
}

func (m *Machine) result(won bool) GameResult {
	s := m.state.Clone()
	return GameResult{
		ReplayID:    s.ReplayID,
		PlayerIndex: s.PlayerIndex,
		Usernames:   s.Usernames,
		Won:         won,
		Turn:        s.Turn,
		Scores:      s.Scores,
		FinishedAt:  m.now(),
	}
}
