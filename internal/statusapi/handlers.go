package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"cortex/internal/agent"
	"cortex/internal/session"

	"github.com/rs/zerolog/log"
)

const (
	maxBodyBytes = 4096
	pingTimeout  = time.Second
)

// healthHandler reports the bus status and, when a bus is wired, fails with
// 503 if it does not answer a ping.
func healthHandler(ctrl Controller, b BusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := ctrl.Snapshot().BusStatus
		if b != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			err := b.Ping(ctx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("health check: bus unreachable")
				metricErrorsTotal.Add(1)
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"ok":    false,
					"bus":   status,
					"error": "bus_unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":  true,
			"bus": status,
		})
	}
}

func stateHandler(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.Snapshot())
	}
}

type gamesRequest struct {
	Count int `json:"count"`
}

func requestGamesHandler(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gamesRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		counters, err := ctrl.RequestGames(r.Context(), req.Count)
		switch {
		case errors.Is(err, session.ErrInvalidGameCount):
			writeHTTPError(w, http.StatusBadRequest, "invalid_count")
			return
		case errors.Is(err, agent.ErrStopped):
			writeHTTPError(w, http.StatusServiceUnavailable, "agent_stopped")
			return
		case err != nil:
			log.Error().Err(err).Int("count", req.Count).Msg("request games failed")
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		metricGameRequestsTotal.Add(1)
		writeJSON(w, http.StatusOK, counters)
	}
}

func stopGamesHandler(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counters, err := ctrl.StopGames(r.Context())
		if errors.Is(err, agent.ErrStopped) {
			writeHTTPError(w, http.StatusServiceUnavailable, "agent_stopped")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("stop games failed")
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, counters)
	}
}
