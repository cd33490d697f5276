package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jukebox/internal/config"
	"jukebox/internal/daemon"
	"jukebox/internal/jobstore"
	"jukebox/internal/logging"
	"jukebox/internal/notifications"
	"jukebox/internal/objectstore"
	"jukebox/internal/pipeline"
	"jukebox/internal/provider"
	"jukebox/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := jobstore.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}

	providerClient, err := provider.NewClient(cfg)
	if err != nil {
		logger.Error("build provider client", logging.Error(err))
		os.Exit(1)
	}

	objects, err := objectstore.NewClient(ctx, cfg)
	if err != nil {
		logger.Error("build object store client", logging.Error(err))
		os.Exit(1)
	}

	notifier := notifications.NewService(cfg)
	pipe := pipeline.New(providerClient, objects, logger)
	w := worker.New(store, pipe, notifier, logger)

	d, err := daemon.New(cfg, store, w, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	case <-d.WorkerDone():
		if err := d.WorkerErr(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker failed", logging.Error(err))
			d.Close()
			os.Exit(1)
		}
	}
}
