package statusapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cortex/internal/observe"
)

var pingInterval = 15 * time.Second

func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func writeSSE(w http.ResponseWriter, ev observe.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.ID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	return nil
}

func eventsHandler(events *observe.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeHTTPError(w, http.StatusInternalServerError, "streaming_unsupported")
			return
		}
		setSSEHeaders(w)
		metricStreamsActive.Add(1)
		defer metricStreamsActive.Add(-1)

		// Subscribe before replaying so nothing appended in between is lost.
		ch := events.Subscribe()
		defer events.Unsubscribe(ch)

		last := ""
		for _, ev := range events.ReplayAfter(r.Header.Get("Last-Event-ID")) {
			if err := writeSSE(w, ev); err != nil {
				return
			}
			last = ev.ID
		}
		flusher.Flush()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if ev.ID <= last {
					continue
				}
				if err := writeSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ping := observe.Event{Type: "ping", At: time.Now().UnixMilli()}
				if err := writeSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
