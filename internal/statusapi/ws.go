package statusapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"cortex/internal/agent"
	"cortex/internal/observe"
	"cortex/internal/session"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 5 * time.Second

// wsCommand is sent by a console client. "play" requests Count games and
// "stop" clears the pending count.
type wsCommand struct {
	Type  string `json:"type"`
	Count int    `json:"count,omitempty"`
}

type wsResult struct {
	Type     string            `json:"type"`
	Ok       bool              `json:"ok"`
	Error    string            `json:"error,omitempty"`
	Counters *session.Counters `json:"counters,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsClient) enqueue(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func wsHandler(ctrl Controller, events *observe.Log) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		metricStreamsActive.Add(1)
		defer metricStreamsActive.Add(-1)

		c := &wsClient{conn: conn, send: make(chan []byte, 8), done: make(chan struct{})}
		ch := events.Subscribe()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.writeLoop(ch)
		}()

		c.readLoop(r, ctrl)
		c.close()
		events.Unsubscribe(ch)
		wg.Wait()
		_ = conn.Close()
	}
}

func (c *wsClient) readLoop(r *http.Request, ctrl Controller) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd wsCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			c.enqueue(wsResult{Type: "error", Error: "invalid_json"})
			continue
		}
		var counters session.Counters
		switch cmd.Type {
		case "play":
			counters, err = ctrl.RequestGames(r.Context(), cmd.Count)
		case "stop":
			counters, err = ctrl.StopGames(r.Context())
		default:
			c.enqueue(wsResult{Type: cmd.Type, Error: "unknown_command"})
			continue
		}
		if err != nil {
			c.enqueue(wsResult{Type: cmd.Type, Error: commandError(err)})
			continue
		}
		c.enqueue(wsResult{Type: cmd.Type, Ok: true, Counters: &counters})
	}
}

// writeLoop is the only writer on the connection. Closing the connection on
// exit unblocks the read loop.
func (c *wsClient) writeLoop(events <-chan observe.Event) {
	defer func() {
		c.close()
		_ = c.conn.Close()
	}()
	for {
		var msg []byte
		select {
		case <-c.done:
			return
		case m := <-c.send:
			msg = m
		case ev, ok := <-events:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Warn().Err(err).Str("event", ev.Type).Msg("encode ws event failed")
				continue
			}
			msg = data
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func commandError(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidGameCount):
		return "invalid_count"
	case errors.Is(err, agent.ErrStopped):
		return "agent_stopped"
	default:
		return "internal_error"
	}
}
