package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/api"
	"github.com/notifyhub/activity-reminders/internal/api/handler"
	"github.com/notifyhub/activity-reminders/internal/config"
	"github.com/notifyhub/activity-reminders/internal/db"
	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/metrics"
	"github.com/notifyhub/activity-reminders/internal/notify"
	"github.com/notifyhub/activity-reminders/internal/observ"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/ratelimiter"
	"github.com/notifyhub/activity-reminders/internal/reminder"
	"github.com/notifyhub/activity-reminders/internal/repository"
	"github.com/notifyhub/activity-reminders/internal/scheduler"
	"github.com/notifyhub/activity-reminders/internal/service"
	"github.com/notifyhub/activity-reminders/internal/store"
	"github.com/notifyhub/activity-reminders/internal/week"
	"github.com/notifyhub/activity-reminders/internal/worker"
)

const serviceName = "activity-reminders"

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observ.NewLogger(serviceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid timezone", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	version, err := db.Migrate(cfg.DatabaseURL, db.MigrationsDir)
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied", zap.Uint("version", version))

	// ---- notification store ----
	healthChecks := map[string]handler.Check{"postgres": pool.Ping}

	var notifications store.NotificationStore
	switch cfg.NotificationStore {
	case config.StoreMemory:
		notifications = store.NewMemory(cfg.NotificationCapacity)
		logger.Warn("using in-memory notification store; records are lost on restart")
	default:
		var rdb *redis.Client
		rdb, err = db.ConnectRedis(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		notifications = store.NewRedis(rdb, cfg.NotificationStoreKey, cfg.NotificationCapacity, logger)
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	m.TrackStoreSize(notifications.Len)

	calc := week.New(loc)
	courses := repository.NewPgCourseRepository(pool)
	jobs := repository.NewPgJobStore(pool)
	q := queue.New(jobs, queue.Config{
		MaxAttempts: cfg.JobMaxAttempts,
		BackoffBase: cfg.JobBackoffBase,
	}, logger)

	// Handlers must be registered before the pool and dispatcher read q.Kinds().
	processor := notify.NewProcessor(courses, notifications, logger.Named("processor"), m.OnNotificationStored)
	scanner := reminder.NewScanner(courses, q, logger.Named("reminders"), m.OnRemindersEnqueued)
	q.RegisterWorker(domain.KindProcessNotification, processor.Handle)
	q.RegisterWorker(domain.KindCheckMissingSubmissions, scanner.Handle)

	submissions := service.NewSubmissionService(courses, q, calc, nil, logger)
	notificationSvc := service.NewNotificationService(notifications, q, calc, nil, logger)

	// ---- queue runtime ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	concurrency := map[domain.JobKind]int{
		domain.KindProcessNotification:     cfg.NotificationWorkers,
		domain.KindCheckMissingSubmissions: cfg.ReminderWorkers,
	}
	buf := queue.NewBuffer(concurrency)
	limiter := ratelimiter.New(cfg.RateLimit, q.Kinds()...)

	onCompleted, onRetry, onFailed := m.WorkerHooks()
	hooks := worker.MetricHooks{OnCompleted: onCompleted, OnRetry: onRetry, OnFailed: onFailed}

	workers := worker.NewPool(q, buf, limiter, concurrency, cfg.JobHandlerTimeout, logger, hooks)
	workers.Start(workerCtx)

	dispatcher := worker.NewDispatcher(q, buf, cfg.DispatchInterval, cfg.JobHandlerTimeout, logger, m.OnBufferDepth)
	go dispatcher.Run(workerCtx)

	reaper := worker.NewReaper(q, cfg.ReaperInterval, cfg.JobRetention, logger, hooks)
	go reaper.Run(workerCtx)

	// ---- daily reminder schedule ----
	sched := scheduler.New(q, loc, cfg.SchedulerInterval, nil, logger.Named("scheduler"))
	sched.SetCatchUp(cfg.SchedulerCatchUp)
	if err := reminder.RegisterSchedule(sched, cfg.ReminderCron, calc); err != nil {
		logger.Fatal("failed to register reminder schedule", zap.Error(err))
	}
	go sched.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Submissions:   submissions,
		Notifications: notificationSvc,
		Buffer:        buf,
		Jobs:          jobs,
		Store:         notifications,
		HealthChecks:  healthChecks,
		Gatherer:      reg,
	}, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.Int("workers", workers.Size()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the dispatcher, reaper, scheduler and workers.
	cancelWorkers()

	// 3. Wait for in-flight handlers. Jobs still buffered stay leased and are
	// recovered by a reaper once their lease expires.
	workers.Wait()

	logger.Info("server stopped cleanly")
}
