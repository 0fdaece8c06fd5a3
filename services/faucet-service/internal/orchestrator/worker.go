package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/models"
	"github.com/burakmert236/xsgfaucet/common/retry"
	faucetErrors "github.com/burakmert236/xsgfaucet/services/faucet-service/internal/errors"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/feed"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/metrics"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/repository"
)

type EventProcessor interface {
	Process(ctx context.Context, post models.Post) (*Result, error)
}

type WorkerConfig struct {
	FeedId       string
	PollInterval time.Duration
	BatchSize    int
	Backoff      retry.Config
}

// Worker pulls the feed from the persisted cursor and processes posts one at a time.
type Worker struct {
	id        string
	cfg       WorkerConfig
	source    feed.Source
	cursors   repository.CursorRepository
	processor EventProcessor
	backoff   *retry.Backoff
	metrics   *metrics.FaucetMetrics
	logger    *logger.Logger
}

func NewWorker(
	cfg WorkerConfig,
	source feed.Source,
	cursors repository.CursorRepository,
	processor EventProcessor,
	m *metrics.FaucetMetrics,
	log *logger.Logger,
) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Minute
	}
	id := uuid.New().String()
	return &Worker{
		id:        id,
		cfg:       cfg,
		source:    source,
		cursors:   cursors,
		processor: processor,
		backoff:   retry.NewBackoff(cfg.Backoff),
		metrics:   m,
		logger:    log.With("component", "worker", "worker_id", id, "feed_id", cfg.FeedId),
	}
}

func (w *Worker) Id() string {
	return w.id
}

// Run blocks until ctx is cancelled. Cancellation is only observed between events.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Worker started")
	defer w.logger.Info("Worker stopped")

	position, ok := w.loadCursor(ctx)
	if !ok {
		return nil
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		batch, err := w.source.Fetch(ctx, position, w.cfg.BatchSize)
		if err != nil {
			w.metrics.IncFeedFailures()
			delay := w.backoff.Next()
			w.logger.Warn("Feed fetch failed", "error", err, "retry_in", delay)
			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}

		before := position
		next, aborted := w.processBatch(ctx, position, batch)
		position = next
		if ctx.Err() != nil {
			return nil
		}
		if aborted {
			if !sleep(ctx, w.backoff.Next()) {
				return nil
			}
			continue
		}

		w.backoff.Reset()
		if batch.Last <= before {
			if !sleep(ctx, w.cfg.PollInterval) {
				return nil
			}
		}
	}
}

// processBatch returns the new cursor position and whether an event was aborted.
// Only transient failures abort; the event is retried from the same cursor.
func (w *Worker) processBatch(ctx context.Context, position uint64, batch *feed.Batch) (uint64, bool) {
	for _, post := range batch.Posts {
		if ctx.Err() != nil {
			return position, false
		}

		panicked, err := w.handle(ctx, post)
		if err != nil && !panicked && apperrors.IsTransient(err) {
			w.metrics.IncFeedFailures()
			w.logger.Warn("Event aborted, will retry", "post_id", post.PostId, "position", post.Position, "error", err)
			return position, true
		}

		if !w.advance(ctx, post.Position) {
			return position, true
		}
		position = post.Position

		// Panics and permanent failures would fail again on replay, so the event is skipped.
		if err != nil {
			w.metrics.IncFeedFailures()
			delay := w.backoff.Next()
			w.logger.Error("Event failed, skipped", "post_id", post.PostId, "position", post.Position, "panicked", panicked, "error", err, "retry_in", delay)
			if !sleep(ctx, delay) {
				return position, false
			}
		}
	}

	if batch.Last > position {
		if !w.advance(ctx, batch.Last) {
			return position, true
		}
		position = batch.Last
	}
	return position, false
}

// handle runs one event to completion on a context that ignores cancellation.
func (w *Worker) handle(ctx context.Context, post models.Post) (panicked bool, err error) {
	eventCtx := context.WithoutCancel(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = faucetErrors.EventPanicError(r)
			panicked = true
			w.metrics.ObserveEvent("PANIC", time.Since(start))
		}
	}()

	result, err := w.processor.Process(eventCtx, post)
	if err != nil {
		return false, err
	}

	w.metrics.ObserveEvent(string(result.Outcome), time.Since(start))
	w.logger.Debug("Event processed", "post_id", post.PostId, "position", post.Position, "outcome", string(result.Outcome))
	return false, nil
}

func (w *Worker) advance(ctx context.Context, position uint64) bool {
	if err := w.cursors.Advance(context.WithoutCancel(ctx), w.cfg.FeedId, position); err != nil {
		w.logger.Warn("Failed to advance cursor", "position", position, "error", err)
		return false
	}
	w.metrics.SetCursor(position)
	return true
}

func (w *Worker) loadCursor(ctx context.Context) (uint64, bool) {
	for {
		position, err := w.cursors.Get(ctx, w.cfg.FeedId)
		if err == nil {
			w.logger.Info("Resuming from cursor", "position", position)
			w.backoff.Reset()
			return position, true
		}

		delay := w.backoff.Next()
		w.logger.Warn("Failed to load cursor", "error", err, "retry_in", delay)
		if !sleep(ctx, delay) {
			return 0, false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
