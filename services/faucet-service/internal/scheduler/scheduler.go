package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/burakmert236/xsgfaucet/common/logger"
)

// Job is one scheduled task. Each run gets its own bounded context.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	timeout time.Duration
	logger  *logger.Logger
}

// New builds a UTC scheduler whose jobs derive their context from ctx.
func New(ctx context.Context, timeout time.Duration, log *logger.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	l := log.With("component", "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{l})),
		),
		ctx:     ctx,
		timeout: timeout,
		logger:  l,
	}
}

func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("Scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Debug("Scheduled job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return err
	}

	s.logger.Info("Job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
