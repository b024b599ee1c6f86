package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"cortex/internal/bus"
	"cortex/internal/config"
	"cortex/internal/notify"
	"cortex/internal/protocol"

	"github.com/jonboulle/clockwork"
)

type fakeBus struct {
	mu       sync.Mutex
	handlers map[protocol.Channel]bus.Handler
	sent     map[protocol.Channel][]any
	status   *notify.Topic[bus.StatusEvent]
	quits    int
	last     bus.Status

	keyspace string
	keys     map[string]any
	lists    map[string][]any
	ttl      time.Duration
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		handlers: map[protocol.Channel]bus.Handler{},
		sent:     map[protocol.Channel][]any{},
		status:   notify.NewTopic[bus.StatusEvent]("bus_status"),
		keys:     map[string]any{},
		lists:    map[string][]any{},
	}
}

func (b *fakeBus) Publish(_ context.Context, channel protocol.Channel, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent[channel] = append(b.sent[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, channel protocol.Channel, h bus.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = h
	return nil
}

func (b *fakeBus) Status() *notify.Topic[bus.StatusEvent] { return b.status }

func (b *fakeBus) LastStatus() bus.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// setStatus records and emits a status change like the redis client does.
func (b *fakeBus) setStatus(s bus.Status) {
	b.mu.Lock()
	b.last = s
	b.mu.Unlock()
	b.status.Emit(bus.StatusEvent{Status: s})
}

func (b *fakeBus) Quit(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quits++
	return nil
}

func (b *fakeBus) SetKeyspace(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keyspace = name
}

func (b *fakeBus) SetKeys(_ context.Context, values map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range values {
		b.keys[k] = v
	}
	return nil
}

func (b *fakeBus) ListPush(_ context.Context, list string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[list] = append(b.lists[list], v)
	return nil
}

func (b *fakeBus) ExpireKeyspace(_ context.Context, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ttl = ttl
	return nil
}

// deliver calls the channel handler the way the bus dispatch goroutine does.
func (b *fakeBus) deliver(t *testing.T, channel protocol.Channel, payload string) {
	t.Helper()
	b.mu.Lock()
	h := b.handlers[channel]
	b.mu.Unlock()
	if h == nil {
		t.Fatalf("no handler for %s", channel)
	}
	h(json.RawMessage(payload))
}

func (b *fakeBus) commands() (joins, probes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.sent[protocol.ChannelCommand] {
		cmd := p.(protocol.Command)
		if cmd.Join != nil {
			joins++
		}
		if cmd.Status {
			probes++
		}
	}
	return joins, probes
}

func (b *fakeBus) quitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quits
}

func testBotConfig() config.BotConfig {
	return config.BotConfig{
		BotIDPrefix:  "cortex",
		UserID:       "player-1",
		CustomGameID: "lobby-1",
		ProbeDelay:   5 * time.Second,
		RejoinDelay:  time.Second,
		ArchiveTTL:   time.Hour,
	}
}

func startAgent(t *testing.T, cfg config.BotConfig) (*Agent, *fakeBus, clockwork.FakeClock) {
	t.Helper()
	fb := newFakeBus()
	clock := clockwork.NewFakeClock()
	a := New(Options{
		BotID:   "cortex-test",
		Config:  cfg,
		Bus:     fb,
		Archive: fb,
		Clock:   clock,
	})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = a.Quit(context.Background()) })
	return a, fb, clock
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// settle waits until every task queued so far has run.
func settle(t *testing.T, a *Agent) {
	t.Helper()
	if err := a.do(context.Background(), func(context.Context) {}); err != nil {
		t.Fatalf("settle: %v", err)
	}
}
