package protocol

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestBotIDMatchesDigestSuffix(t *testing.T) {
	if got := BotID("cortex", ""); got != "cortex-G3hSuFU" {
		t.Fatalf("BotID(empty) = %q, want cortex-G3hSuFU", got)
	}
	if got := BotID("bot", "player-1"); got != "bot-zymAMrs" {
		t.Fatalf("BotID(player-1) = %q, want bot-zymAMrs", got)
	}
	if got := BotID("", "player-1"); got != "cortex-zymAMrs" {
		t.Fatalf("BotID default prefix = %q", got)
	}
}

func TestChannelNamespacing(t *testing.T) {
	if got := ChannelState.Namespaced("cortex-abc"); got != "cortex-abc-state" {
		t.Fatalf("state channel = %q", got)
	}
	if got := ChannelDiscovery.Namespaced("cortex-abc"); got != "discovery" {
		t.Fatalf("discovery channel = %q, want unprefixed", got)
	}
}

func TestDecodeStateEvents(t *testing.T) {
	var ev StateEvent
	if err := json.Unmarshal([]byte(`{"joined":{}}`), &ev); err != nil {
		t.Fatalf("decode joined: %v", err)
	}
	if ev.Tag != TagJoined || ev.GameStart != nil {
		t.Fatalf("unexpected event: %+v", ev)
	}

	raw := `{"game_start":{"replay_id":"r1","playerIndex":1,"usernames":["a","b"]}}`
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("decode game_start: %v", err)
	}
	if ev.Tag != TagGameStart || ev.GameStart == nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.GameStart.ReplayID != "r1" || ev.GameStart.PlayerIndex != 1 || len(ev.GameStart.Usernames) != 2 {
		t.Fatalf("unexpected game_start: %+v", ev.GameStart)
	}

	if err := json.Unmarshal([]byte(`{"some_new_tag":null}`), &ev); err != nil {
		t.Fatalf("decode unknown tag: %v", err)
	}
	if ev.Tag.Known() {
		t.Fatalf("tag %q should be unknown", ev.Tag)
	}
}

func TestDecodeStateEventRejectsMalformed(t *testing.T) {
	cases := map[string]error{
		`{}`:                               ErrEmptyState,
		`{"joined":{},"left":{}}`:          ErrAmbiguousState,
		`{"game_start":{"playerIndex":0}}`: ErrMissingReplayID,
	}
	for raw, want := range cases {
		var ev StateEvent
		err := json.Unmarshal([]byte(raw), &ev)
		if !errors.Is(err, want) {
			t.Fatalf("decode %s error = %v, want %v", raw, err, want)
		}
	}
	var ev StateEvent
	if err := json.Unmarshal([]byte(`"connected"`), &ev); err == nil {
		t.Fatal("expected error for non-object state message")
	}
}

func TestCommandRoundTrip(t *testing.T) {
	for _, cmd := range []Command{Join("lobby-7"), StatusProbe()} {
		data, err := json.Marshal(cmd)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var got Command
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !reflect.DeepEqual(got, cmd) {
			t.Fatalf("round trip = %+v, want %+v", got, cmd)
		}
	}
	data, _ := json.Marshal(Join("lobby-7"))
	if string(data) != `{"join":{"gameType":"custom","gameId":"lobby-7"}}` {
		t.Fatalf("join wire form = %s", data)
	}
	data, _ = json.Marshal(StatusProbe())
	if string(data) != `{"status":true}` {
		t.Fatalf("status wire form = %s", data)
	}
}

func TestStateEventRoundTrip(t *testing.T) {
	ev := StateEvent{Tag: TagGameStart, GameStart: &GameStart{ReplayID: "r9", PlayerIndex: 0, Usernames: []string{"x", "y"}}}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got StateEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, ev) {
		t.Fatalf("round trip = %+v, want %+v", got, ev)
	}
}

func TestRecommendationForwardedVerbatim(t *testing.T) {
	raw := `{"recommender":"deep","actions":[{"start":1,"end":2}],"confidence":0.5}`
	var rec Recommendation
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stamped, err := rec.Stamped(now)
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if stamped.Date == nil || !stamped.Date.Equal(now) {
		t.Fatalf("Date = %v, want %v", stamped.Date, now)
	}
	out, err := json.Marshal(stamped)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"confidence":0.5`) {
		t.Fatalf("unknown field lost: %s", out)
	}
	if !strings.Contains(string(out), `"date":"2026-01-02T03:04:05Z"`) {
		t.Fatalf("date not stamped: %s", out)
	}
	if rec.Date != nil {
		t.Fatal("Stamped must not mutate the receiver")
	}
}

func TestRecommendationKeepsExistingDate(t *testing.T) {
	raw := `{"recommender":"deep","actions":[],"date":"2025-05-05T00:00:00Z"}`
	var rec Recommendation
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	stamped, err := rec.Stamped(time.Now())
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}
	out, _ := json.Marshal(stamped)
	if string(out) != raw {
		t.Fatalf("forwarded = %s, want %s", out, raw)
	}
}
