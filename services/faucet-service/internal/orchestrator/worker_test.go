package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/models"
	"github.com/burakmert236/xsgfaucet/common/retry"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/feed"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/repository"
)

type fakeSource struct {
	mu      sync.Mutex
	posts   []models.Post
	last    uint64
	failFor int
	calls   int
}

func (s *fakeSource) Fetch(_ context.Context, after uint64, limit int) (*feed.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failFor > 0 {
		s.failFor--
		return nil, apperrors.Transient(errors.New("nats down"), "fetch")
	}

	batch := &feed.Batch{Last: after}
	for _, p := range s.posts {
		if p.Position > after && len(batch.Posts) < limit {
			batch.Posts = append(batch.Posts, p)
			batch.Last = p.Position
		}
	}
	if s.last > batch.Last && len(batch.Posts) < limit {
		batch.Last = s.last
	}
	return batch, nil
}

type scriptedProcessor struct {
	mu       sync.Mutex
	seen     []string
	failOnce map[string]bool
	corrupt  map[string]bool
	panicOn  map[string]bool
	block    chan struct{}
	started  chan struct{}
}

func (p *scriptedProcessor) Process(ctx context.Context, post models.Post) (*Result, error) {
	p.mu.Lock()
	p.seen = append(p.seen, post.PostId)
	fail := p.failOnce[post.PostId]
	delete(p.failOnce, post.PostId)
	p.mu.Unlock()

	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.block != nil {
		<-p.block
		if ctx.Err() != nil {
			return nil, errors.New("event context was cancelled")
		}
	}
	if p.panicOn[post.PostId] {
		panic("boom")
	}
	if fail {
		return nil, apperrors.Transient(errors.New("node timeout"), "payout")
	}
	if p.corrupt[post.PostId] {
		return nil, apperrors.New(apperrors.CodeObjectUnmarshalError, "failed to unmarshal reward record")
	}
	return &Result{Outcome: models.OutcomeRewarded}, nil
}

func (p *scriptedProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func posts(ids ...string) []models.Post {
	out := make([]models.Post, len(ids))
	for i, id := range ids {
		out[i] = models.Post{Position: uint64(i + 1), PostId: id, AuthorId: "u"}
	}
	return out
}

func fastWorker(source feed.Source, cursors repository.CursorRepository, processor EventProcessor) *Worker {
	return NewWorker(WorkerConfig{
		FeedId:       "main",
		PollInterval: time.Millisecond,
		BatchSize:    2,
		Backoff:      retry.Config{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2},
	}, source, cursors, processor, nil, logger.Nop())
}

func runUntil(t *testing.T, w *Worker, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestWorkerProcessesInOrderAndAdvancesCursor(t *testing.T) {
	store := repository.NewMemoryStore()
	proc := &scriptedProcessor{}
	w := fastWorker(&fakeSource{posts: posts("a", "b", "c")}, store.Cursors, proc)

	runUntil(t, w, func() bool { return len(proc.processed()) == 3 })

	assert.Equal(t, []string{"a", "b", "c"}, proc.processed())
	pos, _ := store.Cursors.Get(context.Background(), "main")
	assert.Equal(t, uint64(3), pos)
}

func TestWorkerResumesFromPersistedCursor(t *testing.T) {
	store := repository.NewMemoryStore()
	require.NoError(t, store.Cursors.Advance(context.Background(), "main", 2))
	proc := &scriptedProcessor{}
	w := fastWorker(&fakeSource{posts: posts("a", "b", "c")}, store.Cursors, proc)

	runUntil(t, w, func() bool { return len(proc.processed()) == 1 })

	assert.Equal(t, []string{"c"}, proc.processed())
}

func TestWorkerRetriesAbortedEventWithoutAdvancing(t *testing.T) {
	store := repository.NewMemoryStore()
	proc := &scriptedProcessor{failOnce: map[string]bool{"b": true}}
	w := fastWorker(&fakeSource{posts: posts("a", "b", "c")}, store.Cursors, proc)

	runUntil(t, w, func() bool { return len(proc.processed()) == 4 })

	assert.Equal(t, []string{"a", "b", "b", "c"}, proc.processed())
	pos, _ := store.Cursors.Get(context.Background(), "main")
	assert.Equal(t, uint64(3), pos)
}

func TestWorkerSkipsPanickingEvent(t *testing.T) {
	store := repository.NewMemoryStore()
	proc := &scriptedProcessor{panicOn: map[string]bool{"a": true}}
	w := fastWorker(&fakeSource{posts: posts("a", "b")}, store.Cursors, proc)

	runUntil(t, w, func() bool { return len(proc.processed()) == 2 })

	assert.Equal(t, []string{"a", "b"}, proc.processed())
	pos, _ := store.Cursors.Get(context.Background(), "main")
	assert.Equal(t, uint64(2), pos)
}

func TestWorkerSkipsPermanentFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	proc := &scriptedProcessor{corrupt: map[string]bool{"a": true}}
	w := fastWorker(&fakeSource{posts: posts("a", "b")}, store.Cursors, proc)

	runUntil(t, w, func() bool { return len(proc.processed()) == 2 })

	assert.Equal(t, []string{"a", "b"}, proc.processed())
	pos, _ := store.Cursors.Get(context.Background(), "main")
	assert.Equal(t, uint64(2), pos)
}

func TestWorkerBacksOffOnFeedFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	source := &fakeSource{posts: posts("a"), failFor: 3}
	proc := &scriptedProcessor{}
	w := fastWorker(source, store.Cursors, proc)

	runUntil(t, w, func() bool { return len(proc.processed()) == 1 })

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.GreaterOrEqual(t, source.calls, 4)
}

func TestWorkerMovesPastUndecodableTail(t *testing.T) {
	store := repository.NewMemoryStore()
	proc := &scriptedProcessor{}
	w := fastWorker(&fakeSource{posts: posts("a"), last: 5}, store.Cursors, proc)

	runUntil(t, w, func() bool {
		pos, _ := store.Cursors.Get(context.Background(), "main")
		return pos == 5
	})
}

func TestWorkerFinishesInFlightEventOnCancel(t *testing.T) {
	store := repository.NewMemoryStore()
	proc := &scriptedProcessor{block: make(chan struct{}), started: make(chan struct{}, 1)}
	w := fastWorker(&fakeSource{posts: posts("a", "b")}, store.Cursors, proc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	<-proc.started
	cancel()
	close(proc.block)
	<-done

	assert.Equal(t, []string{"a"}, proc.processed())
	pos, _ := store.Cursors.Get(context.Background(), "main")
	assert.Equal(t, uint64(1), pos)
}

type countingRunner struct {
	starts *atomic.Int32
	stops  *atomic.Int32
}

func (r countingRunner) Run(ctx context.Context) error {
	r.starts.Add(1)
	<-ctx.Done()
	r.stops.Add(1)
	return nil
}

func TestSupervisorLifecycle(t *testing.T) {
	var starts, stops atomic.Int32
	s := NewSupervisor(func() Runner { return countingRunner{&starts, &stops} }, nil, logger.Nop())

	require.Error(t, s.Restart())
	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return starts.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, s.Running())

	require.NoError(t, s.Restart())
	require.Eventually(t, func() bool { return starts.Load() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), stops.Load())

	s.Stop()
	assert.Equal(t, int32(2), stops.Load())
	assert.False(t, s.Running())
	s.Stop()
}

func TestSupervisorRestartReloadsCursor(t *testing.T) {
	store := repository.NewMemoryStore()
	source := &fakeSource{posts: posts("a", "b")}
	proc := &scriptedProcessor{}
	s := NewSupervisor(func() Runner { return fastWorker(source, store.Cursors, proc) }, nil, logger.Nop())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return len(proc.processed()) == 2 }, 2*time.Second, time.Millisecond)

	require.NoError(t, s.Restart())
	source.mu.Lock()
	source.posts = append(source.posts, models.Post{Position: 3, PostId: "c", AuthorId: "u"})
	source.mu.Unlock()

	require.Eventually(t, func() bool { return len(proc.processed()) == 3 }, 2*time.Second, time.Millisecond)
	s.Stop()
	assert.Equal(t, []string{"a", "b", "c"}, proc.processed())
}
