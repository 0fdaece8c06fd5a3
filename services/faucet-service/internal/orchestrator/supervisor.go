package orchestrator

import (
	"context"
	"sync"

	"github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/metrics"
)

type Runner interface {
	Run(ctx context.Context) error
}

// Supervisor owns the single worker handle. Each Start builds a fresh runner, which
// reloads its cursor from the store.
type Supervisor struct {
	mu      sync.Mutex
	factory func() Runner
	parent  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	metrics *metrics.FaucetMetrics
	logger  *logger.Logger
}

func NewSupervisor(factory func() Runner, m *metrics.FaucetMetrics, log *logger.Logger) *Supervisor {
	return &Supervisor{
		factory: factory,
		metrics: m,
		logger:  log.With("component", "supervisor"),
	}
}

// Start launches a worker bound to ctx. Later restarts reuse ctx as their parent.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return errors.New(errors.CodeConflict, "worker already running")
	}
	s.parent = ctx
	s.launch()
	return nil
}

// Stop cancels the worker and waits for its in-flight event to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Restart replaces the running worker with a new one.
func (s *Supervisor) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parent == nil {
		return errors.New(errors.CodeInvalidInput, "supervisor was never started")
	}
	if s.parent.Err() != nil {
		return s.parent.Err()
	}

	s.stopLocked()
	s.launch()
	s.metrics.IncWorkerRestarts()
	s.logger.Info("Worker restarted")
	return nil
}

func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Supervisor) launch() {
	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	runner := s.factory()

	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		if err := runner.Run(ctx); err != nil {
			s.logger.Error("Worker exited with error", "error", err)
		}
	}()
}

func (s *Supervisor) stopLocked() {
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}
