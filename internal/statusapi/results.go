package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cortex/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultResultLimit = 20
	maxResultLimit     = 100
	readTimeout        = 2 * time.Second
)

func listResultsHandler(ctrl Controller, results ResultReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if results == nil {
			writeHTTPError(w, http.StatusNotFound, "results_disabled")
			return
		}
		limit := defaultResultLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxResultLimit {
				writeHTTPError(w, http.StatusBadRequest, "invalid_limit")
				return
			}
			limit = n
		}
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()
		botID := ctrl.Snapshot().BotID
		recs, err := results.ListRecent(ctx, botID, limit)
		if err != nil {
			log.Error().Err(err).Str("bot_id", botID).Msg("list results failed")
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if recs == nil {
			recs = []store.GameRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func getResultHandler(results ResultReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if results == nil {
			writeHTTPError(w, http.StatusNotFound, "results_disabled")
			return
		}
		replayID := chi.URLParam(r, "replay_id")
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()
		rec, err := results.GetByReplay(ctx, replayID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeHTTPError(w, http.StatusNotFound, "not_found")
			return
		case err != nil:
			log.Error().Err(err).Str("replay_id", replayID).Msg("get result failed")
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// archiveHandler returns the archived hash of one game. ?fields=a,b narrows
// the response to those fields.
func archiveHandler(b BusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b == nil {
			writeHTTPError(w, http.StatusNotFound, "archive_disabled")
			return
		}
		replayID := chi.URLParam(r, "replay_id")
		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		defer cancel()

		var fields []string
		for _, f := range strings.Split(r.URL.Query().Get("fields"), ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		var err error
		var game map[string]json.RawMessage
		if len(fields) > 0 {
			game, err = b.GetKeys(ctx, replayID, fields...)
		} else {
			game, err = b.GetAllKeys(ctx, replayID)
		}
		if err != nil {
			log.Error().Err(err).Str("replay_id", replayID).Msg("read archive failed")
			writeHTTPError(w, http.StatusBadGateway, "bus_error")
			return
		}
		if len(game) == 0 {
			writeHTTPError(w, http.StatusNotFound, "not_found")
			return
		}
		writeJSON(w, http.StatusOK, game)
	}
}
