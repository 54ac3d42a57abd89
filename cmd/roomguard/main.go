package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"roomguard/internal/api"
	"roomguard/internal/config"
	"roomguard/internal/logging"
	"roomguard/internal/monitor"
	"roomguard/internal/notify"
	"roomguard/internal/storage"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "roomguard.yaml", "path to config file")
	flag.Parse()

	mgr, err := config.NewManager(config.ResolvePath(*configPath))
	if err != nil {
		logger := logging.NewLogger("info")
		logger.Error("load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	cfg := mgr.Get()
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	archive, err := storage.NewStore(cfg.Archive)
	if err != nil {
		logger.Error("open alert archive", "err", err)
		os.Exit(1)
	}
	if archive != nil {
		if err := archive.Init(ctx); err != nil {
			logger.Error("init alert archive", "err", err)
			os.Exit(1)
		}
	}

	dispatcher := notify.NewDispatcher(
		logger,
		cfg.Notify.MinSeverity,
		cfg.Notify.WebhookTimeout,
		notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout),
		notify.NewKafka(cfg.Notify.Kafka),
		notify.NewArchive(archive),
	)
	if cfg.Notify.WebhookURL == "" {
		logger.Info("webhook dispatch disabled, " + config.WebhookURLEnv + " not set")
	}

	sec := monitor.NewSecurity(cfg, logger, dispatcher)
	env := monitor.NewEnvironment(cfg, logger, dispatcher)

	api.Start(ctx, mgr, sec, env, logger, version)

	stop := make(chan struct{})
	go mgr.Watch(0, func(next *config.Config) {
		sec.UpdateConfig(next)
		env.UpdateConfig(next)
		logger.Info("config reloaded", "path", mgr.Path())
	}, func(err error) {
		logger.Error("config reload failed", "err", err)
	}, stop)

	logger.Info("roomguard started", "version", version)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	logger.Info("shutting down")
	close(stop)
	cancel()
	dispatcher.Close()
}
