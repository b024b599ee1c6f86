package store

import (
	"context"
	"sync"
	"time"

	"cortex/internal/config"
	"cortex/internal/notify"
	"cortex/internal/session"

	"github.com/rs/zerolog/log"
)

// ResultWriter persists one finished game. *Store implements it.
type ResultWriter interface {
	RecordGame(ctx context.Context, rec GameRecord) error
}

type recordJob struct {
	rec     GameRecord
	attempt int
}

// Recorder writes game outcomes off the agent loop. Outcomes are queued
// without blocking; a full queue drops the record.
type Recorder struct {
	w     ResultWriter
	botID string
	cfg   config.StoreConfig

	jobs chan recordJob
	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	sub     notify.Subscription
	topic   *notify.Topic[session.GameResult]
}

func NewRecorder(w ResultWriter, botID string, cfg config.StoreConfig) *Recorder {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	return &Recorder{
		w:     w,
		botID: botID,
		cfg:   cfg,
		jobs:  make(chan recordJob, cfg.Buffer),
		done:  make(chan struct{}),
	}
}

// Attach subscribes the recorder to finished games.
func (r *Recorder) Attach(outcomes *notify.Topic[session.GameResult]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topic = outcomes
	r.sub = outcomes.On(r.Enqueue)
}

func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
}

func (r *Recorder) Enqueue(res session.GameResult) {
	rec := GameRecord{
		ID:          recordID(res.FinishedAt),
		BotID:       r.botID,
		ReplayID:    res.ReplayID,
		PlayerIndex: res.PlayerIndex,
		Usernames:   res.Usernames,
		Won:         res.Won,
		Turns:       res.Turn,
		Scores:      res.Scores,
		FinishedAt:  res.FinishedAt,
	}
	r.offer(recordJob{rec: rec})
}

func (r *Recorder) offer(job recordJob) {
	select {
	case <-r.done:
		metricRecordsDroppedTotal.Add(1)
		return
	default:
	}
	select {
	case r.jobs <- job:
		metricRecordQueueLen.Set(int64(len(r.jobs)))
	default:
		metricRecordsDroppedTotal.Add(1)
		log.Warn().Str("replay_id", job.rec.ReplayID).Msg("result queue full, record dropped")
	}
}

func (r *Recorder) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case job := <-r.jobs:
			metricRecordQueueLen.Set(int64(len(r.jobs)))
			r.process(ctx, job)
		}
	}
}

func (r *Recorder) process(ctx context.Context, job recordJob) {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := r.w.RecordGame(writeCtx, job.rec)
	cancel()
	if err == nil {
		metricRecordsWrittenTotal.Add(1)
		log.Debug().Str("replay_id", job.rec.ReplayID).Bool("won", job.rec.Won).Msg("game result recorded")
		return
	}
	metricRecordsFailedTotal.Add(1)
	if job.attempt >= r.cfg.RetryMax {
		metricRecordsDroppedTotal.Add(1)
		log.Error().Err(err).Str("replay_id", job.rec.ReplayID).Int("attempts", job.attempt+1).Msg("game result dropped")
		return
	}
	job.attempt++
	metricRecordRetryTotal.Add(1)
	delay := r.cfg.RetryBase * time.Duration(1<<(job.attempt-1))
	log.Warn().Err(err).Str("replay_id", job.rec.ReplayID).Dur("retry_in", delay).Msg("game result write failed")
	time.AfterFunc(delay, func() { r.offer(job) })
}

// Stop detaches from the outcome topic and waits for in-flight writes.
// Queued and pending retries are discarded.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	if r.topic != nil {
		r.topic.Off(r.sub)
	}
	close(r.done)
	r.mu.Unlock()
	r.wg.Wait()
}
