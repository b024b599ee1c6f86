package protocol

import (
	"encoding/json"
	"time"

	"github.com/tidwall/sjson"
)

const GameTypeCustom = "custom"

type Score struct {
	Total int `json:"total"`
	Tiles int `json:"tiles"`
}

type GameUpdate struct {
	Turn   int     `json:"turn"`
	Scores []Score `json:"scores"`
}

type Move struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Recommendation is shared by the recommendation and action channels. The
// original bytes are kept so a forwarded action carries fields this client
// does not model.
type Recommendation struct {
	Recommender string     `json:"recommender"`
	Actions     []Move     `json:"actions"`
	Date        *time.Time `json:"date,omitempty"`

	raw json.RawMessage
}

func (r *Recommendation) UnmarshalJSON(data []byte) error {
	type plain Recommendation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Recommendation(p)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	type plain Recommendation
	return json.Marshal(plain(r))
}

// Stamped returns a copy carrying a receipt date. A date already present on
// the wire is left untouched.
func (r Recommendation) Stamped(now time.Time) (Recommendation, error) {
	out := r.Clone()
	if out.Date != nil {
		return out, nil
	}
	ts := now.UTC()
	if len(out.raw) > 0 {
		raw, err := sjson.SetBytes(out.raw, "date", ts.Format(time.RFC3339Nano))
		if err != nil {
			return Recommendation{}, err
		}
		out.raw = raw
	}
	out.Date = &ts
	return out, nil
}

func (r Recommendation) Clone() Recommendation {
	out := r
	if r.Actions != nil {
		out.Actions = append([]Move(nil), r.Actions...)
	}
	if r.Date != nil {
		d := *r.Date
		out.Date = &d
	}
	if r.raw != nil {
		out.raw = append(json.RawMessage(nil), r.raw...)
	}
	return out
}

type JoinCommand struct {
	GameType string `json:"gameType"`
	GameID   string `json:"gameId"`
}

// Command is published on the command channel: either a join request or a
// status probe.
type Command struct {
	Join   *JoinCommand `json:"join,omitempty"`
	Status bool         `json:"status,omitempty"`
}

func Join(gameID string) Command {
	return Command{Join: &JoinCommand{GameType: GameTypeCustom, GameID: gameID}}
}

func StatusProbe() Command {
	return Command{Status: true}
}
