package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ruznama_bot/internal/config"
	"ruznama_bot/internal/feature/quote"
	"ruznama_bot/internal/feature/subscription"
	"ruznama_bot/internal/health"
	"ruznama_bot/internal/logging"
	"ruznama_bot/internal/metrics"
	"ruznama_bot/internal/scheduler"
	"ruznama_bot/internal/store"
	"ruznama_bot/internal/telegram"
	"ruznama_bot/internal/timetable"
	"ruznama_bot/internal/webapi"
)

const (
	mongoConnectTimeout      = 10 * time.Second
	mongoIndexTimeout        = 5 * time.Second
	mongoDisconnectTimeout   = 5 * time.Second
	quoteSeedTimeout         = 10 * time.Second
	schedulerShutdownTimeout = 60 * time.Second
	telegramShutdownTimeout  = 10 * time.Second
	httpShutdownTimeout      = 5 * time.Second

	quotesSeedFile = "quotes.json"
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Logger().WithError(err).WithField("event", "config_error").Error("configuration error")
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Logger().WithError(err).WithField("event", "logger_setup_error").Error("logger setup error")
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logger.WithField("event", "config_only").Info("configuration check")
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
		"data_dir": cfg.DataDir,
		"timezone": cfg.Timezone,
		"webhook":  cfg.UseWebhook(),
	}).Info("configuration loaded")

	provider, err := timetable.NewProvider(cfg.DataDir, logger)
	if err != nil {
		logger.WithError(err).Error("timetable load error")
		fmt.Fprintf(os.Stderr, "timetable load error: %v\n", err)
		os.Exit(1)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	subscriptions := subscription.NewStore(mongoManager.Subscriptions(), logger)
	quotes := quote.NewRepository(mongoManager.Quotes(), logger)
	statsProvider := store.NewStatsProvider(mongoManager.Subscriptions(), mongoManager.Quotes())

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), quoteSeedTimeout)
	if _, err := quotes.SeedIfEmpty(seedCtx, filepath.Join(cfg.DataDir, quotesSeedFile)); err != nil {
		logger.WithError(err).WithField("event", "quotes_seed_error").Warn("failed to seed quotes collection")
	}
	cancelSeed()

	metrics.MustRegister()

	revocations := scheduler.NewPending()

	router, err := telegram.NewRouter(telegram.RouterDeps{
		Users:        subscriptions,
		Quotes:       quotes,
		Catalogue:    provider,
		Stats:        statsProvider,
		Admins:       cfg.AdminIDs,
		Lead:         cfg.Notify.LeadTime,
		RevokePolicy: cfg.Notify.RevokePolicy,
		Location:     cfg.Location,
		Revocations:  revocations,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("telegram router setup error")
		fmt.Fprintf(os.Stderr, "telegram router setup error: %v\n", err)
		os.Exit(1)
	}

	tgClient, err := telegram.NewClient(cfg, router, logger)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	reminders, err := scheduler.New(provider, subscriptions, tgClient.Sender(), scheduler.Options{
		Lead:        cfg.Notify.LeadTime,
		Prayers:     cfg.Notify.Prayers,
		Policy:      cfg.Notify.RevokePolicy,
		Concurrency: cfg.Notify.Concurrency,
		Schedule:    cfg.Notify.Schedule,
		Location:    cfg.Location,
		Pending:     revocations,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("scheduler setup error")
		fmt.Fprintf(os.Stderr, "scheduler setup error: %v\n", err)
		os.Exit(1)
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reminders.Start(context.Background()); err != nil {
		logger.WithError(err).Error("scheduler start error")
		fmt.Fprintf(os.Stderr, "scheduler start error: %v\n", err)
		os.Exit(1)
	}

	api, err := webapi.New(provider, quotes, cfg.Location, logger)
	if err != nil {
		logger.WithError(err).Error("web api setup error")
		fmt.Fprintf(os.Stderr, "web api setup error: %v\n", err)
		os.Exit(1)
	}

	serverOpts := []health.Option{health.WithHandler(webapi.Prefix, api)}
	if cfg.UseWebhook() {
		serverOpts = append(serverOpts, health.WithHandler(health.WebhookPath, tgClient.WebhookHandler()))
	}
	httpServer := health.NewServer(cfg.HTTPPort, mongoManager, logger, serverOpts...)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).WithField("event", "health_error").Error("http server failed")
		}
	}()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		defer close(tgDone)
		if err := tgClient.Start(telegramCtx); err != nil {
			logger.WithError(err).WithField("event", "telegram_start_error").Error("telegram client failed to start")
		}
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, shutting down")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	schedulerCtx, cancelScheduler := context.WithTimeout(context.Background(), schedulerShutdownTimeout)
	if err := reminders.Stop(schedulerCtx); err != nil {
		logger.WithError(err).WithField("event", "scheduler_shutdown_timeout").Warn("timed out waiting for reminder tick to finish")
	}
	cancelScheduler()

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := httpServer.Shutdown(httpCtx); err != nil {
		logger.WithError(err).Error("http server shutdown error")
	}
	cancelHTTP()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
