package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultbot/internal/api"
	"consultbot/internal/bot"
	"consultbot/internal/config"
	"consultbot/internal/domain"
	"consultbot/internal/events"
	"consultbot/internal/logging"
	"consultbot/internal/metrics"
	"consultbot/internal/repository"
	"consultbot/internal/service"
	"consultbot/internal/worker"

	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// redisProbe is the startup connectivity check for the Redis session backend.
var redisProbe = worker.RetryPolicy{MaxRetries: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second, BackoffFactor: 2}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	metrics.Register(registry)

	stateRepo, closeStore, err := initStateRepository(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer closeStore()

	stateService := service.NewStateService(stateRepo, &logger)

	if sweeper, ok := stateRepo.(domain.SessionSweeper); ok && cfg.Session.TTL > 0 {
		janitor := worker.NewSessionJanitor(sweeper, cfg.Session.SweepInterval, &logger)
		if err := janitor.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("Session janitor not started")
		} else {
			defer janitor.Stop()
		}
	}

	eventBus := events.NewEventBus()
	subscribeAuditLog(eventBus, &logger)

	if cfg.Monitoring.Enabled {
		opsServer := api.NewOpsServer(cfg.Monitoring.Port, stateRepo, registry, &logger)
		go func() {
			if err := opsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Ops server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = opsServer.Shutdown(shutdownCtx)
		}()
	}

	return startBot(ctx, cfg, stateService, eventBus, bot.NewMetrics(registry), &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
}

// initStateRepository собирает хранилище сессий. Redis и SQLite работают через
// failover на память, чтобы бот не падал при недоступности хранилища.
func initStateRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.StateRepository, func(), error) {
	ttl := cfg.Session.TTL
	noop := func() {}

	var (
		primary  domain.StateRepository
		probeErr error
	)
	closeFn := noop

	switch cfg.Session.Backend {
	case config.BackendRedis:
		client := repository.NewRedisClient(cfg.Redis)
		probeErr = redisProbe.Retry(ctx, func(ctx context.Context) error {
			return repository.Ping(ctx, client)
		})
		primary = repository.NewRedisStateRepository(client, ttl)
		closeFn = func() { _ = repository.Close(client) }

	case config.BackendSQLite:
		repo, err := repository.NewSQLiteStateRepository(cfg.SQLite.Path, ttl)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.SQLite.Path).Msg("Ошибка инициализации SQLite")
			return nil, noop, err
		}
		primary = repo
		closeFn = func() { _ = repo.Close() }

	default:
		logger.Info().Msg("Booking sessions are kept in memory")
		return repository.NewMemoryStateRepository(ttl), noop, nil
	}

	logger.Info().Str("backend", cfg.Session.Backend).Dur("ttl", ttl).Msg("Session store initialized")
	fallback := repository.NewMemoryStateRepository(ttl)
	failover := repository.NewFailoverStateRepository(primary, fallback, logger)
	if probeErr != nil {
		logger.Warn().Err(probeErr).Msg("Redis unavailable, sessions stay in memory until it recovers")
		failover.MarkDown(probeErr)
	}
	return failover, closeFn, nil
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	stateService *service.StateService,
	eventBus *events.EventBus,
	botMetrics *bot.Metrics,
	logger *zerolog.Logger,
) error {
	botWrapper, err := bot.Connect(cfg.Telegram)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}

	tgService := service.NewTelegramService(botWrapper, cfg.Telegram.SendRPS, cfg.Telegram.SendBurst)

	telegramBot, err := bot.NewBot(tgService, cfg, stateService, eventBus, botMetrics, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

// subscribeAuditLog пишет доменные события в лог. Телефон в события не попадает.
func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logger.With().Str("component", "events").Logger()

	bus.OnError(func(ev *events.Event, err error) {
		audit.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})

	handler := func(ev *events.Event) error {
		audit.Info().
			Str("event", ev.Type).
			RawJSON("payload", ev.Payload).
			Time("at", ev.CreatedAt).
			Msg("domain event")
		return nil
	}

	for _, eventType := range []string{
		events.EventBookingStarted,
		events.EventBookingCompleted,
		events.EventJoinRequested,
		events.EventJoinApproved,
		events.EventApprovalFailed,
	} {
		bus.Subscribe(eventType, handler)
	}
}
