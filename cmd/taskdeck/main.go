package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"taskdeck/internal/api"
	"taskdeck/internal/cache"
	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/ui"
)

func main() {
	configFlag := flag.String("config", "", "path to config.toml (default $"+config.EnvConfigPath+" or the XDG config dir)")
	baseURL := flag.String("api", "", "override api.base_url")
	flag.Parse()

	if err := run(config.ResolveConfigPath(*configFlag), *baseURL); err != nil {
		fmt.Fprintf(os.Stderr, "taskdeck: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, baseURL string) error {
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}

	logger, closer, err := logging.New(logging.Options{
		Path:   cfg.Log.Path,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("starting", "config", configPath, "api", cfg.API.BaseURL)

	client, err := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.Timeout(),
		Logger:  logger.WithPrefix("api"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := ui.Options{
		Backend: client,
		Config:  cfg,
		Logger:  logger.WithPrefix("ui"),
	}
	if cfg.Cache.Path != "" {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			logger.Warn("cache disabled", "path", cfg.Cache.Path, "err", err)
		} else {
			defer store.Close()
			opts.Cache = store
			preload(ctx, store, &opts, logger)
		}
	}

	return ui.Run(ctx, opts)
}

// preload fills opts from the cache. Failures only cost the warm start.
func preload(ctx context.Context, store *cache.Store, opts *ui.Options, logger *log.Logger) {
	tasks, err := store.LoadTasks(ctx, time.Local)
	if err != nil {
		logger.Warn("read cached tasks", "err", err)
	} else {
		opts.Cached = tasks
	}
	names, err := store.Categories(ctx)
	if err != nil {
		logger.Warn("read cached categories", "err", err)
	} else {
		opts.Categories = names
	}
}
