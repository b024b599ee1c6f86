package agent

import (
	"cortex/internal/bus"
	"cortex/internal/session"
)

// Snapshot is a copy of the session view safe to read from any goroutine.
type Snapshot struct {
	BotID     string           `json:"bot_id"`
	Session   session.State    `json:"session"`
	Counters  session.Counters `json:"counters"`
	Replays   []string         `json:"replays"`
	BusStatus bus.Status       `json:"bus_status"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Session = s.Session.Clone()
	out.Replays = append([]string{}, s.Replays...)
	return out
}

func (a *Agent) Snapshot() Snapshot {
	a.snapMu.RLock()
	defer a.snapMu.RUnlock()
	return a.snap.clone()
}

func (a *Agent) watchSession() {
	notes := a.machine.Notifications()
	notes.Update.On(func(s session.State) {
		a.snapMu.Lock()
		a.snap.Session = s
		a.snapMu.Unlock()
	})
	notes.Counters.On(func(c session.Counters) {
		a.snapMu.Lock()
		a.snap.Counters = c
		a.snapMu.Unlock()
	})
	notes.Replay.On(func(ids []string) {
		a.snapMu.Lock()
		a.snap.Replays = ids
		a.snapMu.Unlock()
	})
}
