package observe

import (
	"cortex/internal/bus"
	"cortex/internal/notify"
	"cortex/internal/session"
)

const (
	EventState          = "state"
	EventPhase          = "phase"
	EventCounters       = "counters"
	EventReplay         = "replay"
	EventOutcome        = "outcome"
	EventRecommendation = "recommendation"
	EventAction         = "action"
	EventBusStatus      = "bus_status"
)

type busStatus struct {
	Status bus.Status `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// Follow copies session notifications and bus status changes into l. The
// returned function detaches every listener.
func Follow(l *Log, notes *session.Notifications, status *notify.Topic[bus.StatusEvent]) func() {
	var detach []func()
	detach = append(detach,
		forward(notes.Update, l, EventState),
		forward(notes.Phase, l, EventPhase),
		forward(notes.Counters, l, EventCounters),
		forward(notes.Replay, l, EventReplay),
		forward(notes.Outcome, l, EventOutcome),
		forward(notes.Recommendation, l, EventRecommendation),
		forward(notes.Action, l, EventAction),
	)
	if status != nil {
		sub := status.On(func(ev bus.StatusEvent) {
			data := busStatus{Status: ev.Status}
			if ev.Err != nil {
				data.Error = ev.Err.Error()
			}
			l.Append(EventBusStatus, data)
		})
		detach = append(detach, func() { status.Off(sub) })
	}
	return func() {
		for _, fn := range detach {
			fn()
		}
	}
}

func forward[T any](topic *notify.Topic[T], l *Log, typ string) func() {
	sub := topic.On(func(v T) { l.Append(typ, v) })
	return func() { topic.Off(sub) }
}
