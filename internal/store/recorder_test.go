package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cortex/internal/config"
	"cortex/internal/notify"
	"cortex/internal/session"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  []GameRecord
}

func (w *fakeWriter) RecordGame(_ context.Context, rec GameRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failures > 0 {
		w.failures--
		return errors.New("connection refused")
	}
	w.written = append(w.written, rec)
	return nil
}

func (w *fakeWriter) snapshot() (int, []GameRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls, append([]GameRecord(nil), w.written...)
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

func testStoreConfig() config.StoreConfig {
	return config.StoreConfig{Workers: 1, Buffer: 8, RetryMax: 2, RetryBase: time.Millisecond}
}

func TestRecorderWritesOutcomes(t *testing.T) {
	w := &fakeWriter{}
	r := NewRecorder(w, "cortex-a", testStoreConfig())
	outcomes := notify.NewTopic[session.GameResult]("outcome")
	r.Attach(outcomes)
	r.Start(context.Background())
	defer r.Stop()

	idx := 0
	outcomes.Emit(session.GameResult{ReplayID: "r1", PlayerIndex: &idx, Won: true, Turn: 7, FinishedAt: time.Now()})
	waitFor(t, "record", func() bool {
		_, written := w.snapshot()
		return len(written) == 1
	})
	_, written := w.snapshot()
	rec := written[0]
	if rec.BotID != "cortex-a" || rec.ReplayID != "r1" || !rec.Won || rec.Turns != 7 || rec.ID == "" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestRecorderRetriesThenSucceeds(t *testing.T) {
	w := &fakeWriter{failures: 2}
	r := NewRecorder(w, "cortex-a", testStoreConfig())
	r.Start(context.Background())
	defer r.Stop()

	r.Enqueue(session.GameResult{ReplayID: "r1"})
	waitFor(t, "record after retries", func() bool {
		_, written := w.snapshot()
		return len(written) == 1
	})
	if calls, _ := w.snapshot(); calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRecorderDropsAfterRetryMax(t *testing.T) {
	w := &fakeWriter{failures: 100}
	r := NewRecorder(w, "cortex-a", testStoreConfig())
	r.Start(context.Background())
	defer r.Stop()

	r.Enqueue(session.GameResult{ReplayID: "r1"})
	waitFor(t, "all attempts", func() bool {
		calls, _ := w.snapshot()
		return calls == 3
	})
	time.Sleep(20 * time.Millisecond)
	if calls, written := w.snapshot(); calls != 3 || len(written) != 0 {
		t.Fatalf("calls = %d written = %d, want 3 and 0", calls, len(written))
	}
}

func TestRecorderStopDetaches(t *testing.T) {
	w := &fakeWriter{}
	r := NewRecorder(w, "cortex-a", testStoreConfig())
	outcomes := notify.NewTopic[session.GameResult]("outcome")
	r.Attach(outcomes)
	r.Start(context.Background())
	r.Stop()
	r.Stop()

	if outcomes.Len() != 0 {
		t.Fatalf("listeners = %d after Stop, want 0", outcomes.Len())
	}
	r.Enqueue(session.GameResult{ReplayID: "late"})
	if calls, _ := w.snapshot(); calls != 0 {
		t.Fatalf("calls = %d after Stop, want 0", calls)
	}
}

func TestRecorderQueueFullDrops(t *testing.T) {
	w := &fakeWriter{}
	cfg := testStoreConfig()
	cfg.Buffer = 1
	r := NewRecorder(w, "cortex-a", cfg)

	r.Enqueue(session.GameResult{ReplayID: "r1"})
	r.Enqueue(session.GameResult{ReplayID: "r2"})
	if n := len(r.jobs); n != 1 {
		t.Fatalf("queued = %d, want 1", n)
	}
}
