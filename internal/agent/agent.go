// Package agent runs one bot session. A single loop goroutine owns the
// session Machine; bus deliveries, API calls and timer continuations are
// queued onto it and run in arrival order.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cortex/internal/bus"
	"cortex/internal/config"
	"cortex/internal/notify"
	"cortex/internal/protocol"
	"cortex/internal/session"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("agent_stopped")

// Bus is the subset of *bus.Client the agent needs.
type Bus interface {
	Publish(ctx context.Context, channel protocol.Channel, payload any) error
	Subscribe(ctx context.Context, channel protocol.Channel, h bus.Handler) error
	Status() *notify.Topic[bus.StatusEvent]
	LastStatus() bus.Status
	Quit(ctx context.Context) error
}

type Options struct {
	BotID  string
	Config config.BotConfig
	Bus    Bus
	// Archive is used only when Config.ArchiveGames is set.
	Archive   Archive
	Clock     clockwork.Clock
	InboxSize int
}

type task func(ctx context.Context)

type Agent struct {
	botID   string
	cfg     config.BotConfig
	bus     Bus
	clock   clockwork.Clock
	machine *session.Machine
	archive *archiver

	inbox    chan task
	quit     chan struct{}
	done     chan struct{}
	started  bool
	startMu  sync.Mutex
	quitOnce sync.Once
	quitErr  error

	timerMu   sync.Mutex
	timers    map[uint64]clockwork.Timer
	nextTimer uint64
	stopped   bool

	snapMu sync.RWMutex
	snap   Snapshot

	statusSub notify.Subscription
}

func New(opts Options) *Agent {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	a := &Agent{
		botID:  opts.BotID,
		cfg:    opts.Config,
		bus:    opts.Bus,
		clock:  opts.Clock,
		inbox:  make(chan task, opts.InboxSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		timers: map[uint64]clockwork.Timer{},
	}
	a.machine = session.NewMachine(session.Options{
		GameID:      opts.Config.CustomGameID,
		ProbeDelay:  opts.Config.ProbeDelay,
		RejoinDelay: opts.Config.RejoinDelay,
		Publisher:   opts.Bus,
		Scheduler:   a,
		Now:         opts.Clock.Now,
	})
	a.snap = Snapshot{
		BotID:   opts.BotID,
		Session: a.machine.Snapshot(),
		Replays: []string{},
	}
	a.watchSession()
	a.watchBus()
	if opts.Config.ArchiveGames && opts.Archive != nil {
		a.archive = newArchiver(opts.BotID, opts.Archive, opts.Config.ArchiveTTL)
		a.archive.attach(a.machine.Notifications())
	}
	return a
}

func (a *Agent) BotID() string { return a.botID }

// Notifications must only be subscribed to before Start; listeners run on
// the loop goroutine.
func (a *Agent) Notifications() *session.Notifications { return a.machine.Notifications() }

// BusStatus is the bus lifecycle topic, emitted on the bus goroutines.
func (a *Agent) BusStatus() *notify.Topic[bus.StatusEvent] { return a.bus.Status() }

// Start runs the loop and subscribes to the session channels. It requests
// the configured number of auto-play games.
func (a *Agent) Start(ctx context.Context) error {
	a.startMu.Lock()
	if a.started {
		a.startMu.Unlock()
		return nil
	}
	a.started = true
	a.startMu.Unlock()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		defer cancel()
		a.run(loopCtx)
	}()

	subs := []struct {
		channel protocol.Channel
		handler bus.Handler
	}{
		{protocol.ChannelState, bus.Decode(protocol.ChannelState, a.onState)},
		{protocol.ChannelGameUpdate, bus.Decode(protocol.ChannelGameUpdate, a.onGameUpdate)},
		{protocol.ChannelRecommendation, bus.Decode(protocol.ChannelRecommendation, a.onRecommendation)},
		{protocol.ChannelAction, bus.Decode(protocol.ChannelAction, a.onAction)},
	}
	for _, s := range subs {
		if err := a.bus.Subscribe(ctx, s.channel, s.handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.channel, err)
		}
	}
	log.Info().Str("bot_id", a.botID).Str("game_id", a.cfg.CustomGameID).Msg("agent started")

	if a.cfg.AutoPlay > 0 {
		n := a.cfg.AutoPlay
		a.enqueue(func(ctx context.Context) {
			if err := a.machine.Relay().RequestGames(ctx, n); err != nil {
				log.Error().Err(err).Msg("auto play request failed")
			}
		})
	}
	return nil
}

func (a *Agent) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-a.quit:
			return
		case fn := <-a.inbox:
			a.runTask(ctx, fn)
		}
	}
}

func (a *Agent) runTask(ctx context.Context, fn task) {
	defer func() {
		if r := recover(); r != nil {
			metricTaskPanicsTotal.Add(1)
			log.Error().Interface("panic", r).Str("bot_id", a.botID).Msg("agent task failed")
		}
	}()
	metricTasksTotal.Add(1)
	fn(ctx)
}

// enqueue blocks while the inbox is full. It reports false once the agent
// is stopping.
func (a *Agent) enqueue(fn task) bool {
	select {
	case <-a.quit:
		return false
	default:
	}
	select {
	case a.inbox <- fn:
		return true
	case <-a.quit:
		return false
	}
}

// do runs fn on the loop and waits for it to finish.
func (a *Agent) do(ctx context.Context, fn task) error {
	finished := make(chan struct{})
	ok := a.enqueue(func(ctx context.Context) {
		defer close(finished)
		fn(ctx)
	})
	if !ok {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Agent) onState(ev protocol.StateEvent) {
	a.enqueue(func(ctx context.Context) { a.machine.ApplyState(ctx, ev) })
}

func (a *Agent) onGameUpdate(u protocol.GameUpdate) {
	a.enqueue(func(ctx context.Context) {
		a.machine.ApplyGameUpdate(u)
		if a.archive != nil {
			a.archive.turn(ctx, u)
		}
	})
}

func (a *Agent) onRecommendation(rec protocol.Recommendation) {
	a.enqueue(func(ctx context.Context) { a.machine.Relay().OnRecommendation(ctx, rec) })
}

func (a *Agent) onAction(rec protocol.Recommendation) {
	a.enqueue(func(context.Context) { a.machine.Relay().OnAction(rec) })
}

// watchBus tracks bus status from construction on. The current status is
// read after the listener is registered so nothing emitted before Start is
// missed.
func (a *Agent) watchBus() {
	a.snapMu.Lock()
	defer a.snapMu.Unlock()
	a.statusSub = a.bus.Status().On(a.onBusStatus)
	a.snap.BusStatus = a.bus.LastStatus()
}

func (a *Agent) onBusStatus(ev bus.StatusEvent) {
	a.snapMu.Lock()
	a.snap.BusStatus = ev.Status
	a.snapMu.Unlock()
}

// RequestGames adds n games to the pending count and joins if possible.
func (a *Agent) RequestGames(ctx context.Context, n int) (session.Counters, error) {
	if n < 1 {
		return session.Counters{}, fmt.Errorf("%w: %d", session.ErrInvalidGameCount, n)
	}
	var (
		counters session.Counters
		err      error
	)
	if derr := a.do(ctx, func(ctx context.Context) {
		err = a.machine.Relay().RequestGames(ctx, n)
		counters = a.machine.Relay().Counters()
	}); derr != nil {
		return session.Counters{}, derr
	}
	return counters, err
}

func (a *Agent) StopGames(ctx context.Context) (session.Counters, error) {
	var counters session.Counters
	if err := a.do(ctx, func(context.Context) {
		a.machine.Relay().StopGames()
		counters = a.machine.Relay().Counters()
	}); err != nil {
		return session.Counters{}, err
	}
	return counters, nil
}

// Schedule implements session.Scheduler. fn runs on the loop after d unless
// the agent quits first.
func (a *Agent) Schedule(d time.Duration, fn func(ctx context.Context)) {
	if d <= 0 {
		go a.enqueue(fn)
		return
	}
	a.timerMu.Lock()
	defer a.timerMu.Unlock()
	if a.stopped {
		return
	}
	a.nextTimer++
	id := a.nextTimer
	a.timers[id] = a.clock.AfterFunc(d, func() {
		a.timerMu.Lock()
		delete(a.timers, id)
		a.timerMu.Unlock()
		a.enqueue(fn)
	})
	metricTimersScheduledTotal.Add(1)
}

func (a *Agent) pendingTimers() int {
	a.timerMu.Lock()
	defer a.timerMu.Unlock()
	return len(a.timers)
}

func (a *Agent) stopTimers() {
	a.timerMu.Lock()
	a.stopped = true
	timers := a.timers
	a.timers = map[uint64]clockwork.Timer{}
	a.timerMu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}

// Quit cancels pending timers, stops the loop and closes the bus. Queued
// work that has not run yet is dropped. Safe to call more than once.
func (a *Agent) Quit(ctx context.Context) error {
	a.quitOnce.Do(func() {
		a.stopTimers()
		close(a.quit)

		a.startMu.Lock()
		started := a.started
		a.started = true
		a.startMu.Unlock()
		var errs []error
		if started {
			select {
			case <-a.done:
			case <-ctx.Done():
				errs = append(errs, fmt.Errorf("wait for loop: %w", ctx.Err()))
			}
		}
		// Quit runs once, so the bus is closed even if the loop is still busy.
		a.bus.Status().Off(a.statusSub)
		if err := a.bus.Quit(ctx); err != nil {
			errs = append(errs, fmt.Errorf("quit bus: %w", err))
		}
		a.quitErr = errors.Join(errs...)
		log.Info().Str("bot_id", a.botID).Msg("agent stopped")
	})
	return a.quitErr
}
