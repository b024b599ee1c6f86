package session

import (
	"cortex/internal/notify"
	"cortex/internal/protocol"
)

// Notifications are the topics the session emits. Every payload is a copy.
type Notifications struct {
	Update         *notify.Topic[State]
	Phase          *notify.Topic[Phase]
	Joined         *notify.Topic[struct{}]
	Playing        *notify.Topic[struct{}]
	GameStart      *notify.Topic[State]
	Replay         *notify.Topic[[]string]
	Outcome        *notify.Topic[GameResult]
	Counters       *notify.Topic[Counters]
	Recommendation *notify.Topic[protocol.Recommendation]
	Action         *notify.Topic[protocol.Recommendation]
}

func NewNotifications() *Notifications {
	return &Notifications{
		Update:         notify.NewTopic[State]("update"),
		Phase:          notify.NewTopic[Phase]("phase"),
		Joined:         notify.NewTopic[struct{}]("joined"),
		Playing:        notify.NewTopic[struct{}]("playing"),
		GameStart:      notify.NewTopic[State]("game_start"),
		Replay:         notify.NewTopic[[]string]("replay"),
		Outcome:        notify.NewTopic[GameResult]("outcome"),
		Counters:       notify.NewTopic[Counters]("counters"),
		Recommendation: notify.NewTopic[protocol.Recommendation]("recommendation"),
		Action:         notify.NewTopic[protocol.Recommendation]("action"),
	}
}
