package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/reminder-api/internal/config"
	eventHandler "github.com/jwalitptl/reminder-api/internal/handler/event"
	"github.com/jwalitptl/reminder-api/internal/handler/health"
	reminderHandler "github.com/jwalitptl/reminder-api/internal/handler/reminder"
	schedulerHandler "github.com/jwalitptl/reminder-api/internal/handler/scheduler"
	"github.com/jwalitptl/reminder-api/internal/middleware"
	"github.com/jwalitptl/reminder-api/internal/repository"
	"github.com/jwalitptl/reminder-api/internal/repository/memory"
	"github.com/jwalitptl/reminder-api/internal/repository/sqlstore"
	"github.com/jwalitptl/reminder-api/internal/router"
	eventService "github.com/jwalitptl/reminder-api/internal/service/event"
	"github.com/jwalitptl/reminder-api/internal/service/notification"
	reminderService "github.com/jwalitptl/reminder-api/internal/service/reminder"
	"github.com/jwalitptl/reminder-api/internal/worker"
	"github.com/jwalitptl/reminder-api/pkg/auth"
	"github.com/jwalitptl/reminder-api/pkg/cache"
	"github.com/jwalitptl/reminder-api/pkg/logger"
	"github.com/jwalitptl/reminder-api/pkg/messaging/redis"
	"github.com/jwalitptl/reminder-api/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	issueToken := flag.String("issue-token", "", "print an access token for this owner id and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	if *issueToken != "" {
		ownerID, err := uuid.Parse(*issueToken)
		if err != nil {
			log.Fatal(err, "invalid owner id")
		}
		token, err := tokens.GenerateToken(ownerID)
		if err != nil {
			log.Fatal(err, "failed to issue token")
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg, log, tokens); err != nil {
		log.Fatal(err, "server stopped")
	}
}

// run owns every long-lived resource; returning unwinds them in reverse.
func run(cfg *config.Config, log *logger.Logger, tokens *auth.TokenService) error {
	ctx := context.Background()
	checks := map[string]health.Check{}

	// Initialize store
	store, err := openStore(ctx, cfg.Database, checks)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	defer store.Close()

	// Redis backs the listing cache and the broker notifier when selected
	var redisClient *goredis.Client
	if cfg.Cache.Driver == "redis" || cfg.Notification.Driver == "redis" {
		redisClient, err = redis.NewClient(ctx, cfg.Redis.Client())
		if err != nil {
			return err
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var listCache cache.Cache
	if cfg.Cache.Driver == "redis" {
		listCache = cache.NewRedis(redisClient, "reminder-api")
	} else {
		listCache = cache.NewMemory(cfg.Cache.TTL, 2*cfg.Cache.TTL)
	}

	var notifier worker.Notifier
	if cfg.Notification.Driver == "redis" {
		notifier = notification.NewBrokerNotifier(redis.NewRedisBroker(redisClient, log.Zerolog()), cfg.Notification.Channel)
	} else {
		notifier = notification.NewLogNotifier(log)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New("reminders")
	if err := appMetrics.Register(registry); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// Scheduler
	scheduler := worker.NewReminderScheduler(notifier, cfg.Scheduler.Worker(), log, worker.WithMetrics(appMetrics))
	if _, err := scheduler.Restore(ctx, store); err != nil {
		return fmt.Errorf("failed to restore reminders: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start reminder scheduler: %w", err)
	}
	defer scheduler.Stop()

	// Services
	reminders := reminderService.NewService(store, scheduler, log,
		reminderService.WithCache(listCache),
		reminderService.WithMetrics(appMetrics))
	events := eventService.NewService(store, reminders, log,
		eventService.WithListCache(listCache, cfg.Cache.TTL))

	// Router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.NewRouter(
		log,
		appMetrics,
		registry,
		middleware.NewAuthMiddleware(tokens),
		health.NewHandler(checks),
		[]router.Handler{
			eventHandler.NewHandler(events),
			reminderHandler.NewHandler(reminders),
			schedulerHandler.NewHandler(scheduler),
		},
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
		},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(srv, quit, scheduler.Stop, cfg.Server.ShutdownTimeout, log)
}

// serve runs srv until a signal arrives on quit or the listener fails, then
// stops intake with stopIntake and drains in-flight requests. A listener
// failure is returned instead of exiting so the caller's cleanup still runs.
func serve(srv *http.Server, quit <-chan os.Signal, stopIntake func(), shutdownTimeout time.Duration, log *logger.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case sig := <-quit:
		log.Info("shutting down server...", "signal", sig.String())
	case err := <-serverErr:
		runErr = fmt.Errorf("failed to start server: %w", err)
	}

	stopIntake()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	if runErr == nil {
		log.Info("server exited properly")
	}
	return runErr
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, checks map[string]health.Check) (repository.Store, error) {
	if cfg.Driver == "memory" {
		return memory.NewStore(), nil
	}

	db, err := sqlstore.NewDB(cfg.SQLStore())
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	checks["database"] = db.PingContext
	return sqlstore.NewStore(db), nil
}
