package session

import (
	"context"
	"time"

	"cortex/internal/protocol"
)

type published struct {
	channel protocol.Channel
	payload any
}

type fakePublisher struct {
	sent      []published
	err       error
	onPublish func(protocol.Channel, any)
}

func (p *fakePublisher) Publish(_ context.Context, channel protocol.Channel, payload any) error {
	if p.onPublish != nil {
		p.onPublish(channel, payload)
	}
	p.sent = append(p.sent, published{channel: channel, payload: payload})
	return p.err
}

func (p *fakePublisher) on(channel protocol.Channel) []any {
	var out []any
	for _, s := range p.sent {
		if s.channel == channel {
			out = append(out, s.payload)
		}
	}
	return out
}

func (p *fakePublisher) joins() int {
	n := 0
	for _, payload := range p.on(protocol.ChannelCommand) {
		if cmd, ok := payload.(protocol.Command); ok && cmd.Join != nil {
			n++
		}
	}
	return n
}

func (p *fakePublisher) probes() int {
	n := 0
	for _, payload := range p.on(protocol.ChannelCommand) {
		if cmd, ok := payload.(protocol.Command); ok && cmd.Status {
			n++
		}
	}
	return n
}

type scheduledTask struct {
	delay time.Duration
	fn    func(context.Context)
}

type fakeScheduler struct {
	tasks []scheduledTask
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func(context.Context)) {
	s.tasks = append(s.tasks, scheduledTask{delay: d, fn: fn})
}

func (s *fakeScheduler) runAll(ctx context.Context) {
	tasks := s.tasks
	s.tasks = nil
	for _, t := range tasks {
		t.fn(ctx)
	}
}

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestMachine() (*Machine, *fakePublisher, *fakeScheduler) {
	pub := &fakePublisher{}
	sched := &fakeScheduler{}
	m := NewMachine(Options{
		GameID:      "lobby-1",
		ProbeDelay:  5 * time.Second,
		RejoinDelay: time.Second,
		Publisher:   pub,
		Scheduler:   sched,
		Now:         func() time.Time { return fixedNow },
	})
	return m, pub, sched
}

func tag(t protocol.StateTag) protocol.StateEvent {
	return protocol.StateEvent{Tag: t}
}

func gameStart(replayID string, idx int, names ...string) protocol.StateEvent {
	return protocol.StateEvent{
		Tag:       protocol.TagGameStart,
		GameStart: &protocol.GameStart{ReplayID: replayID, PlayerIndex: idx, Usernames: names},
	}
}
