// Command dumb-recommender answers every game update of one bot with a
// random move. It exists for local end-to-end runs.
package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cortex/internal/bus"
	"cortex/internal/config"
	"cortex/internal/logging"
	"cortex/internal/protocol"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"
)

type Publisher interface {
	Publish(ctx context.Context, channel protocol.Channel, payload any) error
}

// recommender only runs on the bus dispatch goroutine.
type recommender struct {
	name    string
	tiles   int
	moves   int
	rnd     *rand.Rand
	pub     Publisher
	playing bool
	turn    int64
}

func (r *recommender) onState(payload json.RawMessage) {
	var ev protocol.StateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return
	}
	switch ev.Tag {
	case protocol.TagGameStart, protocol.TagPlaying:
		r.playing = true
	case protocol.TagGameWon, protocol.TagGameLost, protocol.TagLeft, protocol.TagDisconnected:
		r.playing = false
	}
}

func (r *recommender) onGameUpdate(ctx context.Context, payload json.RawMessage) {
	turn := gjson.GetBytes(payload, "turn")
	if !r.playing || !turn.Exists() {
		return
	}
	r.turn = turn.Int()
	rec := decide(r.rnd, r.name, r.tiles, r.moves)
	if err := r.pub.Publish(ctx, protocol.ChannelRecommendation, rec); err != nil {
		log.Error().Err(err).Int64("turn", r.turn).Msg("publish recommendation failed")
		return
	}
	log.Debug().Int64("turn", r.turn).Int("moves", len(rec.Actions)).Msg("recommendation sent")
}

func decide(rnd *rand.Rand, name string, tiles, moves int) protocol.Recommendation {
	if tiles <= 0 {
		tiles = 1
	}
	if moves <= 0 {
		moves = 1
	}
	actions := make([]protocol.Move, moves)
	for i := range actions {
		actions[i] = protocol.Move{Start: rnd.Intn(tiles), End: rnd.Intn(tiles)}
	}
	return protocol.Recommendation{Recommender: name, Actions: actions}
}

func main() {
	_ = godotenv.Load()
	flags := pflag.NewFlagSet("dumb-recommender", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "JSON config file shared with cortex")
	debug := flags.Bool("debug", false, "log at debug level")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.LoadApp(*configPath)
	if err != nil {
		panic(err)
	}
	recCfg, err := config.LoadRecommender()
	if err != nil {
		panic(err)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	if cfg.Bot.UserID == "" {
		log.Fatal().Err(config.ErrMissingUserID).Msg("invalid bot config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botID := protocol.BotID(cfg.Bot.BotIDPrefix, cfg.Bot.UserID)
	client := bus.New(cfg.Bus, botID)
	client.Connect(ctx)

	r := &recommender{
		name:  recCfg.Name,
		tiles: recCfg.BoardTiles,
		moves: recCfg.Moves,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		pub:   client,
	}
	if err := client.Subscribe(ctx, protocol.ChannelState, r.onState); err != nil {
		log.Fatal().Err(err).Msg("subscribe state failed")
	}
	if err := client.Subscribe(ctx, protocol.ChannelGameUpdate, func(p json.RawMessage) { r.onGameUpdate(ctx, p) }); err != nil {
		log.Fatal().Err(err).Msg("subscribe game updates failed")
	}
	log.Info().Str("bot_id", botID).Str("recommender", recCfg.Name).Msg("recommender running")

	<-ctx.Done()
	quitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Quit(quitCtx); err != nil {
		log.Warn().Err(err).Msg("bus quit failed")
	}
}
