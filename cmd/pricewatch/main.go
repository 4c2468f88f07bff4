// Package main wires together the pricewatch service binary.
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

	"go.uber.org/zap"

	"github.com/dealwatch/pricewatch/internal/api"
	"github.com/dealwatch/pricewatch/internal/clock/system"
	"github.com/dealwatch/pricewatch/internal/config"
	"github.com/dealwatch/pricewatch/internal/extractor"
	collyfetcher "github.com/dealwatch/pricewatch/internal/fetcher/colly"
	"github.com/dealwatch/pricewatch/internal/logging"
	"github.com/dealwatch/pricewatch/internal/metrics"
	memorynotifier "github.com/dealwatch/pricewatch/internal/notifier/memory"
	pubsubnotifier "github.com/dealwatch/pricewatch/internal/notifier/pubsub"
	smtpnotifier "github.com/dealwatch/pricewatch/internal/notifier/smtp"
	memorystore "github.com/dealwatch/pricewatch/internal/store/memory"
	postgresstore "github.com/dealwatch/pricewatch/internal/store/postgres"
	"github.com/dealwatch/pricewatch/internal/tracker"
	"github.com/dealwatch/pricewatch/internal/watch"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer store.Close()

	notifier, closeNotifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("notifier init failed", zap.Error(err))
	}
	defer closeNotifier()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	extract := extractor.New(cfg.Tracker.PriceSelector)
	clock := system.New()

	runner := tracker.New(
		store,
		fetcher,
		extract,
		notifier,
		clock,
		tracker.Config{
			FetchTimeout:  cfg.FetchTimeout(),
			NotifyTimeout: cfg.NotifyTimeout(),
		},
		logger.Named("tracker"),
	)

	apiServer := api.NewServer(runner, store, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (watch.Store, error) {
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("using postgres watch store", zap.String("table", cfg.DB.Table))
		store, err := postgresstore.New(ctx, postgresstore.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, nil
	case "memory":
		logger.Info("using in-memory watch store; watches will not survive restarts")
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown db.provider %q", cfg.DB.Provider)
	}
}

func newNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (watch.Notifier, func(), error) {
	switch cfg.Notifier.Provider {
	case "smtp":
		logger.Info("using smtp notifier", zap.String("host", cfg.Notifier.SMTP.Host))
		n := smtpnotifier.New(smtpnotifier.Config{
			Host:     cfg.Notifier.SMTP.Host,
			Port:     cfg.Notifier.SMTP.Port,
			Username: cfg.Notifier.SMTP.Username,
			Password: cfg.Notifier.SMTP.Password,
			From:     cfg.Notifier.SMTP.From,
		})
		return n, func() {}, nil
	case "pubsub":
		logger.Info("using pubsub notifier", zap.String("topic", cfg.Notifier.PubSub.TopicName))
		n, err := pubsubnotifier.New(ctx, cfg.Notifier.PubSub.ProjectID, cfg.Notifier.PubSub.TopicName)
		if err != nil {
			return nil, nil, fmt.Errorf("init pubsub notifier: %w", err)
		}
		closer := func() {
			if err := n.Close(); err != nil {
				logger.Warn("close pubsub notifier failed", zap.Error(err))
			}
		}
		return n, closer, nil
	case "memory":
		logger.Info("using in-memory notifier; alerts will not be delivered")
		return memorynotifier.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier.provider %q", cfg.Notifier.Provider)
	}
}
