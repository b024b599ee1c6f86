package session

import (
	"time"

	"cortex/internal/protocol"
)

// State is the session view owned by the Machine. Values handed out are
// copies; the per-game fields are replaced wholesale on game_start.
type State struct {
	Phase       Phase            `json:"phase"`
	ReplayID    string           `json:"replay_id"`
	PlayerIndex *int             `json:"player_index"`
	Turn        int              `json:"turn"`
	Usernames   []string         `json:"usernames"`
	Scores      []protocol.Score `json:"scores"`
	Outcome     *bool            `json:"outcome"`
}

func newGameState(gs protocol.GameStart) State {
	idx := gs.PlayerIndex
	return State{
		Phase:       PhasePlaying,
		ReplayID:    gs.ReplayID,
		PlayerIndex: &idx,
		Usernames:   append([]string(nil), gs.Usernames...),
	}
}

func (s State) Clone() State {
	out := s
	if s.PlayerIndex != nil {
		v := *s.PlayerIndex
		out.PlayerIndex = &v
	}
	if s.Outcome != nil {
		v := *s.Outcome
		out.Outcome = &v
	}
	if s.Usernames != nil {
		out.Usernames = append([]string(nil), s.Usernames...)
	}
	if s.Scores != nil {
		out.Scores = append([]protocol.Score(nil), s.Scores...)
	}
	return out
}

// Counters is owned by the Relay and lives for the whole process.
type Counters struct {
	Pending int `json:"pending"`
	Won     int `json:"won"`
	Lost    int `json:"lost"`
}

// GameResult describes a finished game.
type GameResult struct {
	ReplayID    string           `json:"replay_id"`
	PlayerIndex *int             `json:"player_index"`
	Usernames   []string         `json:"usernames"`
	Won         bool             `json:"won"`
	Turn        int              `json:"turn"`
	Scores      []protocol.Score `json:"scores"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// ReplayHistory lists replay ids most recent first.
type ReplayHistory struct {
	ids []string
}

func (h *ReplayHistory) add(id string) {
	h.ids = append(h.ids, id)
}

func (h *ReplayHistory) Len() int { return len(h.ids) }

func (h *ReplayHistory) Snapshot() []string {
	out := make([]string, len(h.ids))
	for i, id := range h.ids {
		out[len(h.ids)-1-i] = id
	}
	return out
}
