package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/burakmert236/xsgfaucet/common/cache"
	"github.com/burakmert236/xsgfaucet/common/config"
	"github.com/burakmert236/xsgfaucet/common/database"
	"github.com/burakmert236/xsgfaucet/common/events"
	"github.com/burakmert236/xsgfaucet/common/logger"
	"github.com/burakmert236/xsgfaucet/common/natsjetstream"
	"github.com/burakmert236/xsgfaucet/common/retry"
	"github.com/burakmert236/xsgfaucet/common/utils"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/feed"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/metrics"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/node"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/notify"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/orchestrator"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/parser"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/payout"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/pricing"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/repository"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/scheduler"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/social"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/internal/stats"
)

const (
	serviceName         = "faucet-service"
	notificationDupes   = 24 * time.Hour
	feedDupes           = 10 * time.Minute
	streamInitTimeout   = 10 * time.Second
	scheduledJobTimeout = 2 * time.Minute
)

type App struct {
	cfg        *config.Config
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *logger.Logger
	metrics    *metrics.FaucetMetrics
	store      *repository.Store
	natsClient *natsjetstream.Client
	graph      orchestrator.SocialGraph
	node       *node.Client
	explorer   *node.Explorer
	gate       payout.Gate
	stats      stats.Aggregator
	supervisor *orchestrator.Supervisor
	scheduler  *scheduler.Scheduler
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server

	mu      sync.Mutex
	stopped bool
	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config, devLogs bool) (*App, error) {
	runCtx, cancel := context.WithCancel(ctx)
	app := &App{
		cfg:     cfg,
		ctx:     runCtx,
		cancel:  cancel,
		cleanup: make([]func() error, 0),
	}

	app.initLogger(devLogs)
	app.metrics = metrics.Faucet()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"storage", app.initStorage},
		{"redis", app.initRedis},
		{"NATS", app.initNATS},
		{"node", app.initNode},
		{"services", app.initServices},
		{"scheduler", app.initScheduler},
		{"gRPC", app.initGRPC},
		{"metrics", app.initMetrics},
	}
	for _, step := range steps {
		if err := step.fn(runCtx); err != nil {
			app.runCleanup()
			cancel()
			return nil, fmt.Errorf("failed to init %s: %w", step.name, err)
		}
	}

	return app, nil
}

func (a *App) initLogger(devLogs bool) {
	if devLogs {
		a.logger = logger.Development(serviceName)
	} else {
		a.logger = logger.New(logger.Config{
			Level:       a.cfg.Log.Level,
			Format:      a.cfg.Log.Format,
			ServiceName: serviceName,
		})
	}
	a.cleanup = append(a.cleanup, func() error {
		_ = a.logger.Sync()
		return nil
	})
}

func (a *App) initStorage(ctx context.Context) error {
	if a.cfg.Storage.Driver == config.StorageDriverMemory {
		a.logger.Warn("Using in-memory storage, ledger will not survive a restart")
		a.store = repository.NewMemoryStore()
		return nil
	}

	db, err := database.NewDynamoDBClient(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.store = repository.NewDynamoStore(db)
	a.logger.Info("DynamoDB storage ready", "table", db.Table())
	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	if a.cfg.Redis.Address == "" {
		a.logger.Warn("Redis not configured, every reward is classified as tag")
		return nil
	}

	client, err := cache.NewRedisClient(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	a.cleanup = append(a.cleanup, client.Close)
	a.graph = social.NewGraph(client.GetClient())
	return nil
}

func (a *App) initNATS(ctx context.Context) error {
	client, err := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           a.cfg.NATS.URL,
		MaxReconnect:  a.cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
	}, a.logger)
	if err != nil {
		return err
	}
	a.natsClient = client
	a.cleanup = append(a.cleanup, client.Close)

	ctx, cancel := context.WithTimeout(ctx, streamInitTimeout)
	defer cancel()

	if err := client.EnsureStream(ctx, natsjetstream.StreamConfig{
		Name:       a.cfg.NATS.FeedStream,
		Subjects:   []string{a.cfg.NATS.FeedSubject},
		Duplicates: feedDupes,
	}); err != nil {
		return err
	}

	return client.EnsureStream(ctx, natsjetstream.StreamConfig{
		Name:       a.cfg.NATS.NotificationStream,
		Subjects:   []string{events.NotificationsWildcard},
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: notificationDupes,
	})
}

func (a *App) initNode(_ context.Context) error {
	a.node = node.NewClient(a.cfg.Node, a.logger)
	if a.cfg.Explorer.Enabled {
		a.explorer = node.NewExplorer(a.cfg.Explorer.URL, a.cfg.Node.Timeout)
	}
	return nil
}

func (a *App) initServices(_ context.Context) error {
	notifier := notify.NewNotifier(natsjetstream.NewPublisher(a.natsClient), a.logger)

	a.stats = stats.NewAggregator(a.store.Stats, notifier, a.cfg.Stats, a.cfg.Bot.CurrencyPrecision, a.logger)
	engine := pricing.NewEngine(pricing.ConfigFromBot(a.cfg.Bot), a.stats, time.Now)
	a.gate = payout.NewGate(a.node, engine, a.logger)

	pipeline := orchestrator.NewPipeline(orchestrator.PipelineDeps{
		Store:    a.store,
		Stats:    a.stats,
		Gate:     a.gate,
		Parser:   parser.NewParser(a.node, a.cfg.Bot),
		Graph:    a.graph,
		Notifier: notifier,
		Config:   a.cfg.Bot,
		Metrics:  a.metrics,
		Logger:   a.logger,
	})

	source := feed.NewSource(
		natsjetstream.NewReader(a.natsClient, a.cfg.NATS.FeedStream, a.cfg.NATS.FeedSubject),
		a.logger,
	)
	workerCfg := orchestrator.WorkerConfig{
		FeedId:       a.cfg.Worker.FeedID,
		PollInterval: a.cfg.Worker.PollInterval,
		BatchSize:    a.cfg.Worker.BatchSize,
		Backoff: retry.Config{
			InitialDelay:  a.cfg.Worker.BackoffInitial,
			MaxDelay:      a.cfg.Worker.BackoffMax,
			Multiplier:    a.cfg.Worker.BackoffMultiplier,
			JitterEnabled: true,
		},
	}

	a.supervisor = orchestrator.NewSupervisor(func() orchestrator.Runner {
		return orchestrator.NewWorker(workerCfg, source, a.store.Cursors, pipeline, a.metrics, a.logger)
	}, a.metrics, a.logger)

	return nil
}

func (a *App) initScheduler(ctx context.Context) error {
	a.scheduler = scheduler.New(ctx, scheduledJobTimeout, a.logger)

	if err := a.scheduler.Add("stats-publish", a.cfg.Stats.PublishSpec, func(ctx context.Context) error {
		return a.stats.Publish(ctx, time.Now())
	}); err != nil {
		return err
	}

	if err := a.scheduler.Add("worker-watchdog", a.cfg.Worker.WatchdogSpec, func(context.Context) error {
		return a.supervisor.Restart()
	}); err != nil {
		return err
	}

	return a.scheduler.Add("balance-refresh", a.cfg.Worker.BalanceSpec, a.refreshBalance)
}

func (a *App) initGRPC(_ context.Context) error {
	a.grpcServer = grpc.NewServer(
		grpc.UnaryInterceptor(utils.LoggingInterceptor(a.logger)),
	)

	a.health = health.NewServer()
	a.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	a.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(a.grpcServer, a.health)
	reflection.Register(a.grpcServer)

	return nil
}

func (a *App) initMetrics(_ context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	a.httpServer = &http.Server{
		Addr:              a.cfg.Server.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

func (a *App) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		a.logger.Info("gRPC server listening", "port", a.cfg.Server.GRPCPort)
		if err := a.grpcServer.Serve(lis); err != nil {
			a.logger.Error("gRPC server stopped", "error", err)
		}
	}()

	go func() {
		a.logger.Info("Metrics server listening", "address", a.cfg.Server.MetricsAddress)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server stopped", "error", err)
		}
	}()

	go a.run()

	a.logger.Info("Application started successfully")
	return nil
}

// run waits for the node to catch up, then starts the worker and the scheduled jobs.
func (a *App) run() {
	if a.explorer != nil {
		if err := node.WaitForSync(a.ctx, a.node, a.explorer, a.cfg.Explorer.SyncPollInterval, a.logger); err != nil {
			return
		}
	}

	a.logDepositAddresses()
	if err := a.refreshBalance(a.ctx); err != nil {
		a.logger.Warn("Failed to read faucet balance", "error", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	if err := a.supervisor.Start(a.ctx); err != nil {
		a.logger.Error("Failed to start worker", "error", err)
		return
	}
	a.scheduler.Start()

	a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	a.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
}

func (a *App) refreshBalance(ctx context.Context) error {
	balance, err := a.gate.GetBalance(ctx)
	if err != nil {
		return err
	}
	a.metrics.SetBalance(balance)
	return nil
}

func (a *App) logDepositAddresses() {
	addresses, err := a.gate.DepositAddresses(a.ctx)
	if err != nil {
		a.logger.Warn("Failed to list deposit addresses", "error", err)
		return
	}
	a.logger.Info("Faucet deposit addresses", "addresses", addresses)
}

func (a *App) Stop() error {
	a.logger.Info("Stopping application...")

	a.health.Shutdown()
	a.cancel()

	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	a.scheduler.Stop()
	a.supervisor.Stop()

	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Metrics server shutdown error", "error", err)
	}

	a.runCleanup()
	return nil
}

func (a *App) runCleanup() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			a.logger.Error("Cleanup error", "error", err)
		}
	}
	a.cleanup = nil
}
