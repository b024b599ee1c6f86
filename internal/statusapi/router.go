// Package statusapi serves the agent's session view over HTTP: a JSON
// snapshot, game requests, stored results and a server-sent event feed.
package statusapi

import (
	"context"
	"expvar"
	"net/http"
	"time"

	"cortex/internal/agent"
	"cortex/internal/observe"
	"cortex/internal/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Controller is the part of *agent.Agent the API drives.
type Controller interface {
	Snapshot() agent.Snapshot
	RequestGames(ctx context.Context, n int) (session.Counters, error)
	StopGames(ctx context.Context) (session.Counters, error)
}

func NewRouter(ctrl Controller, events *observe.Log, src Sources) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(ctrl, src.Bus))
	r.Get("/debug/vars", expvar.Handler().ServeHTTP)
	r.Get("/ws", wsHandler(ctrl, events))

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Get("/state", stateHandler(ctrl))
		r.Post("/games", requestGamesHandler(ctrl))
		r.Delete("/games", stopGamesHandler(ctrl))
		r.Get("/events", eventsHandler(events))
		r.Get("/results", listResultsHandler(ctrl, src.Results))
		r.Get("/results/{replay_id}", getResultHandler(src.Results))
		r.Get("/archive/{replay_id}", archiveHandler(src.Bus))
	})
	return r
}

func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
