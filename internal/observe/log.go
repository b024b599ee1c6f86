// Package observe keeps a bounded feed of session events for outside
// observers. Event ids are ULIDs, so later events compare greater.
package observe

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Event struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	BotID string `json:"bot_id"`
	At    int64  `json:"at"`
	Data  any    `json:"data"`
}

type Log struct {
	botID string
	now   func() time.Time

	mu       sync.Mutex
	entropy  *ulid.MonotonicEntropy
	max      int
	events   []Event
	watchers map[chan Event]struct{}
	closed   bool
}

func NewLog(botID string, max int) *Log {
	if max <= 0 {
		max = 500
	}
	return &Log{
		botID:    botID,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		max:      max,
		watchers: map[chan Event]struct{}{},
	}
}

// Append records an event and offers it to every watcher. A watcher whose
// channel is full misses the event.
func (l *Log) Append(typ string, data any) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Event{}
	}
	now := l.now()
	ev := Event{
		ID:    ulid.MustNew(ulid.Timestamp(now), l.entropy).String(),
		Type:  typ,
		BotID: l.botID,
		At:    now.UnixMilli(),
		Data:  data,
	}
	l.events = append(l.events, ev)
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
	for ch := range l.watchers {
		select {
		case ch <- ev:
		default:
			metricEventsDroppedTotal.Add(1)
		}
	}
	metricEventsTotal.Add(1)
	return ev
}

// ReplayAfter returns the buffered events newer than lastID, or all of them
// when lastID is empty or not an id this log issued.
func (l *Log) ReplayAfter(lastID string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return nil
	}
	if _, err := ulid.ParseStrict(lastID); err != nil {
		out := make([]Event, len(l.events))
		copy(out, l.events)
		return out
	}
	out := make([]Event, 0, len(l.events))
	for _, ev := range l.events {
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}

func (l *Log) Subscribe() chan Event {
	ch := make(chan Event, 32)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		close(ch)
		return ch
	}
	l.watchers[ch] = struct{}{}
	return ch
}

func (l *Log) Unsubscribe(ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.watchers[ch]; ok {
		delete(l.watchers, ch)
		close(ch)
	}
}

func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for ch := range l.watchers {
		close(ch)
		delete(l.watchers, ch)
	}
}
