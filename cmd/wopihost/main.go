package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/discovery"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/ratelimiter"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/server"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/wopi"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/config"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// seedDocuments creates the initial document for every configured submission
// that has no stored resource yet. Existing documents are left alone, so
// restarts against persistent backends are idempotent.
func seedDocuments(ctx context.Context, backend storage.Backend, cfg *config.Config) error {
	for _, sub := range cfg.Submissions {
		_, err := backend.FindByItem(ctx, wopi.Component, wopi.FileArea, sub.ID)
		if err == nil {
			logger.Debug("Submission %d already has a document", sub.ID)
			continue
		}
		if !errors.Is(err, storage.ErrResourceNotFound) {
			return fmt.Errorf("failed to probe submission %d: %w", sub.ID, err)
		}

		var content []byte
		if sub.SeedFile != "" {
			content, err = os.ReadFile(sub.SeedFile)
			if err != nil {
				return fmt.Errorf("failed to read seed file for submission %d: %w", sub.ID, err)
			}
		}

		resource, err := backend.Create(ctx, storage.ResourceMeta{
			ContextID: cfg.WOPI.ContextID,
			Component: wopi.Component,
			FileArea:  wopi.FileArea,
			ItemID:    sub.ID,
			FilePath:  "/",
			Filename:  sub.Filename,
		}, content)
		if err != nil {
			return fmt.Errorf("failed to create document for submission %d: %w", sub.ID, err)
		}

		logger.Info("Seeded %s for submission %d (%d bytes, hash %s)",
			resource.Filename, sub.ID, resource.Size, resource.PathnameHash)
	}
	return nil
}

func setupLogging(cfg *config.LoggingConfig) (func(), error) {
	logger.SetLevel(cfg.Level)

	switch cfg.Output {
	case "stdout", "":
		return func() {}, nil
	case "stderr":
		logger.SetOutput(os.Stderr)
		return func() {}, nil
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
		return func() { _ = f.Close() }, nil
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	closeLog, err := setupLogging(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, err := config.CreateStorageBackend(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}
	logger.Info("Storage backend ready (type=%s)", cfg.Storage.Type)

	registry := config.BuildRegistry(cfg)
	logger.Info("Registry seeded: %d users, %d groups, %d submissions",
		len(cfg.Users), len(cfg.Groups), len(cfg.Submissions))

	if err := seedDocuments(ctx, backend, cfg); err != nil {
		log.Fatalf("Failed to seed documents: %v", err)
	}

	var disc *discovery.Client
	if cfg.WOPI.DiscoveryURL != "" {
		disc = discovery.NewClient(cfg.WOPI.DiscoveryURL, cfg.WOPI.DiscoveryTTL)
		logger.Info("Editor discovery enabled against %s", cfg.WOPI.DiscoveryURL)
	} else {
		logger.Warn("No discovery URL configured; the view endpoint is disabled")
	}

	srv := server.New(server.Config{
		ListenAddr:      cfg.Server.ListenAddr,
		CallbackURL:     cfg.WOPI.CallbackURL,
		SiteID:          cfg.WOPI.SiteID,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, backend, registry, disc, wopi.LogEmitter{},
		ratelimiter.New(cfg.Server.RequestsPerSecond, cfg.Server.Burst))

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error: %v", err)
		os.Exit(1)
	}
}
