package protocol

import (
	"encoding/json"
	"fmt"
)

type StateTag string

const (
	TagConnected    StateTag = "connected"
	TagDisconnected StateTag = "disconnected"
	TagJoined       StateTag = "joined"
	TagLeft         StateTag = "left"
	TagPlaying      StateTag = "playing"
	TagGameLost     StateTag = "game_lost"
	TagGameWon      StateTag = "game_won"
	TagGameStart    StateTag = "game_start"
)

func (t StateTag) Known() bool {
	switch t {
	case TagConnected, TagDisconnected, TagJoined, TagLeft, TagPlaying, TagGameLost, TagGameWon, TagGameStart:
		return true
	default:
		return false
	}
}

type GameStart struct {
	ReplayID    string   `json:"replay_id"`
	PlayerIndex int      `json:"playerIndex"`
	Usernames   []string `json:"usernames"`
}

// StateEvent is one message of the state channel: an object with a single
// top-level key naming the event. Only game_start carries a body we read.
type StateEvent struct {
	Tag       StateTag
	GameStart *GameStart
}

func (e *StateEvent) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	switch len(fields) {
	case 0:
		return ErrEmptyState
	case 1:
	default:
		return ErrAmbiguousState
	}
	for tag, body := range fields {
		e.Tag = StateTag(tag)
		e.GameStart = nil
		if e.Tag != TagGameStart {
			continue
		}
		var gs GameStart
		if err := json.Unmarshal(body, &gs); err != nil {
			return fmt.Errorf("decode game_start: %w", err)
		}
		if gs.ReplayID == "" {
			return ErrMissingReplayID
		}
		e.GameStart = &gs
	}
	return nil
}

func (e StateEvent) MarshalJSON() ([]byte, error) {
	var body any = struct{}{}
	if e.GameStart != nil {
		body = e.GameStart
	}
	return json.Marshal(map[string]any{string(e.Tag): body})
}
