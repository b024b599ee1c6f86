package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cortex/internal/agent"
	"cortex/internal/bus"
	"cortex/internal/config"
	"cortex/internal/logging"
	"cortex/internal/observe"
	"cortex/internal/protocol"
	"cortex/internal/statusapi"
	"cortex/internal/store"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("cortex", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "JSON config file with gameConfig and redisConfig blocks")
	debug := flags.Bool("debug", false, "log at debug level")
	games := flags.IntP("games", "g", 0, "games to request once started")
	logFile := flags.String("log-file", "out.log", "log file when LOG_FILE is unset; \"-\" logs to stdout")
	_ = flags.Parse(os.Args[1:])
	if *configPath == "" && flags.NArg() > 0 {
		*configPath = flags.Arg(0)
	}

	cfg, err := config.LoadApp(*configPath)
	if err != nil {
		panic(err)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.File == "" && *logFile != "-" {
		cfg.Log.File = *logFile
	}
	if err := cfg.Log.Validate(); err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	if err := cfg.Bot.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid bot config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botID := protocol.BotID(cfg.Bot.BotIDPrefix, cfg.Bot.UserID)
	log.Logger = log.With().Str("bot_id", botID).Logger()

	client := bus.New(cfg.Bus, botID)
	client.Connect(ctx)

	a := agent.New(agent.Options{
		BotID:   botID,
		Config:  cfg.Bot,
		Bus:     client,
		Archive: client,
	})
	events := observe.NewLog(botID, cfg.Status.EventBuffer)
	unfollow := observe.Follow(events, a.Notifications(), a.BusStatus())

	var (
		st       *store.Store
		recorder *store.Recorder
	)
	if cfg.Store.PostgresDSN != "" {
		st, recorder = openResults(ctx, cfg.Store, botID)
		if recorder != nil {
			recorder.Attach(a.Notifications().Outcome)
			recorder.Start(ctx)
		}
	}

	if err := a.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("agent start failed")
	}
	if *games > 0 {
		if _, err := a.RequestGames(ctx, *games); err != nil {
			log.Error().Err(err).Int("games", *games).Msg("request games failed")
		}
	}

	var server *http.Server
	if cfg.Status.HTTPAddr != "" {
		src := statusapi.Sources{Bus: client}
		if st != nil {
			src.Results = st
		}
		server = statusapi.NewServer(cfg.Status.HTTPAddr, statusapi.NewRouter(a, events, src))
		go func() {
			log.Info().Str("addr", cfg.Status.HTTPAddr).Msg("http listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server stopped")
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	events.Close()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown failed")
		}
	}
	if err := a.Quit(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("agent quit failed")
	}
	unfollow()
	if recorder != nil {
		recorder.Stop()
	}
	if st != nil {
		st.Close()
	}
}

// openResults connects the optional results store. Failures disable it
// rather than stopping the bot.
func openResults(ctx context.Context, cfg config.StoreConfig, botID string) (*store.Store, *store.Recorder) {
	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error().Err(err).Msg("results store disabled")
		return nil, nil
	}
	if err := st.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("results store unreachable, disabled")
		st.Close()
		return nil, nil
	}
	if err := st.EnsureSchema(ctx); err != nil {
		log.Error().Err(err).Msg("results schema failed, disabled")
		st.Close()
		return nil, nil
	}
	return st, store.NewRecorder(st, botID, cfg)
}
