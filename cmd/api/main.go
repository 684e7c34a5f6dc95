package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourbook/internal/api"
	"tourbook/internal/auth"
	"tourbook/internal/config"
	"tourbook/internal/database"
	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/google"
	"tourbook/internal/logging"
	"tourbook/internal/messaging"
	"tourbook/internal/metrics"
	"tourbook/internal/models"
	"tourbook/internal/payments"
	"tourbook/internal/repository"
	"tourbook/internal/scheduler"
	"tourbook/internal/service"
	"tourbook/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	tours, err := loadTours(cfg.ToursPath, logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	memoryLimiter := repository.NewMemoryRateLimiter()
	limiter := initRateLimiter(redisClient, memoryLimiter, logger)

	bus, audit := initEventBus(db, redisClient, logger)
	// runs after the HTTP server has drained and before db.Close
	defer audit.Stop()
	initSheetsMirror(ctx, cfg, db, redisClient, bus, logger)
	initBrokerPublisher(ctx, cfg.Messaging, bus, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTTLMinutes)*time.Minute)
	tourService := service.NewTourService(db, logging.Component(logger, "tours"))
	if err := tourService.Seed(ctx, tours); err != nil {
		logger.Error().Err(err).Msg("seed tours")
		return err
	}

	userService := service.NewUserService(db, cfg.Auth.BcryptCost, logging.Component(logger, "users"))
	authService := service.NewAuthService(userService, tokens, logging.Component(logger, "auth"))
	if err := authService.SeedAdmin(ctx, cfg.Admin); err != nil {
		logger.Error().Err(err).Msg("seed admin account")
		return err
	}

	gateway := payments.NewStripeGateway(
		cfg.Payments.StripeSecretKey,
		time.Duration(cfg.Payments.TimeoutSeconds)*time.Second,
		logging.Component(logger, "payments"),
	)
	bookingService := service.NewBookingService(
		db, tourService, userService, gateway, bus, db,
		cfg.Payments.Currency, logging.Component(logger, "bookings"),
	)

	httpServer := api.NewHTTPServer(cfg.API, api.Services{
		Bookings: bookingService,
		Tours:    tourService,
		Users:    userService,
		Auth:     authService,
	}, tokens, limiter, logging.Component(logger, "http"))

	startMetrics(ctx, cfg, logger)

	if err := startScheduler(ctx, cfg, db, memoryLimiter, logger); err != nil {
		return err
	}

	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func loadTours(path string, logger *zerolog.Logger) ([]*models.Tour, error) {
	if envPath := os.Getenv("TOURS_PATH"); envPath != "" {
		path = envPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("tours_path", path).Msg("read tours")
		return nil, err
	}

	var toursConfig struct {
		Tours []*models.Tour `yaml:"tours"`
	}
	if err := yaml.Unmarshal(data, &toursConfig); err != nil {
		logger.Error().Err(err).Str("tours_path", path).Msg("parse tours")
		return nil, err
	}

	logger.Info().Int("count", len(toursConfig.Tours)).Msg("tours loaded")
	return toursConfig.Tours, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// the failover limiter keeps probing, so the client stays
		logger.Warn().Err(err).Msg("redis connection failed, rate limits use memory until it recovers")
		return redisClient
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initRateLimiter(redisClient *redis.Client, memory *repository.MemoryRateLimiter, logger *zerolog.Logger) domain.RateLimitStore {
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverRateLimiter(
		repository.NewRedisRateLimiter(redisClient),
		memory,
		logging.Component(logger, "rate-limit"),
	)
}

// initEventBus wires the audit trail writer and the lifecycle counters to the bus.
// The audit worker outlives the signal context: it is stopped explicitly once the HTTP
// server has finished, so events from in-flight requests still reach the store.
func initEventBus(db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) (*events.EventBus, *worker.AuditWorker) {
	bus := events.NewEventBus()

	audit := worker.NewAuditWorker(db, redisClient, worker.RetryPolicy{}, logging.Component(logger, "audit"))
	go audit.Start(context.Background())
	bus.SubscribeAll(audit.Handle)

	bus.SubscribeAll(func(e *events.Event) error {
		metrics.IncBookingEvent(e.Type)
		return nil
	})
	return bus, audit
}

// initSheetsMirror is best effort: a broken spreadsheet setup never blocks the API.
func initSheetsMirror(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	bus *events.EventBus,
	logger *zerolog.Logger,
) {
	if !cfg.Google.Enabled() {
		return
	}
	sheetsLogger := logging.Component(logger, "sheets")

	sheet, err := google.NewBookingSheet(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID, cfg.Google.SheetName)
	if err != nil {
		sheetsLogger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}

	sheetsWorker := worker.NewSheetsWorker(db, sheet, redisClient, worker.RetryPolicy{}, sheetsLogger)
	go sheetsWorker.Start(ctx)
	bus.SubscribeAll(sheetsWorker.Handle)

	go func() {
		syncCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		bookings, err := db.ListBookings(syncCtx)
		if err == nil {
			err = sheet.ReplaceAll(syncCtx, bookings)
		}
		if err != nil {
			sheetsLogger.Error().Err(err).Msg("initial sheets sync failed")
			return
		}
		sheetsLogger.Info().Int("bookings", len(bookings)).Msg("google sheets synced")
	}()

	go sheet.WarmUpEvery(ctx, time.Hour, func(err error) {
		sheetsLogger.Warn().Err(err).Msg("sheets cache refresh failed")
	})
}

func initBrokerPublisher(ctx context.Context, cfg config.MessagingConfig, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.RabbitMQURL == "" {
		return
	}
	publisher := messaging.NewPublisher(messaging.DialURL(cfg.RabbitMQURL), cfg.Exchange, logging.Component(logger, "broker"))
	go publisher.Start(ctx)
	bus.SubscribeAll(publisher.Handle)
}

// startScheduler runs database backups and the in-memory limiter sweep on cron specs.
func startScheduler(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	memoryLimiter *repository.MemoryRateLimiter,
	logger *zerolog.Logger,
) error {
	jobs := scheduler.New(logging.Component(logger, "scheduler"))

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		if err := jobs.Add("backup", backups.Schedule(), backups.Run); err != nil {
			return err
		}
		go backups.Run(ctx)
	}

	err := jobs.Add("rate-limit-sweep", "@every 5m", func(context.Context) {
		if removed := memoryLimiter.Sweep(); removed > 0 {
			logger.Debug().Int("removed", removed).Msg("expired rate limit windows swept")
		}
	})
	if err != nil {
		return err
	}

	go jobs.Start(ctx)
	return nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
