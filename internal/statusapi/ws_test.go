package statusapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cortex/internal/observe"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWSPlayAndStop(t *testing.T) {
	_, _, h := newTestRouter()
	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dialWS(t, srv)

	if err := conn.WriteJSON(wsCommand{Type: "play", Count: 10}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var res wsResult
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Type != "play" || !res.Ok || res.Counters == nil || res.Counters.Pending != 10 {
		t.Fatalf("play result = %+v", res)
	}

	if err := conn.WriteJSON(wsCommand{Type: "play"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res = wsResult{}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Ok || res.Error != "invalid_count" {
		t.Fatalf("zero play result = %+v", res)
	}

	if err := conn.WriteJSON(wsCommand{Type: "stop"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res = wsResult{}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !res.Ok || res.Counters.Pending != 0 {
		t.Fatalf("stop result = %+v", res)
	}
}

func TestWSStreamsEvents(t *testing.T) {
	_, events, h := newTestRouter()
	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dialWS(t, srv)

	// A command round trip proves the server side has subscribed.
	if err := conn.WriteJSON(wsCommand{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var res wsResult
	if err := conn.ReadJSON(&res); err != nil || res.Error != "unknown_command" {
		t.Fatalf("bogus result = %+v, %v", res, err)
	}

	sent := events.Append(observe.EventPhase, "PLAYING")
	var got observe.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != sent.ID || got.Type != observe.EventPhase {
		t.Fatalf("event = %+v, want %s", got, sent.ID)
	}

	events.Close()
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("read after close err = %v, want going away", err)
	}
}
