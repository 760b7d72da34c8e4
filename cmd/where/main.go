package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/where/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/where/internal/adapter/kafka"
	"github.com/couchcryptid/where/internal/config"
	"github.com/couchcryptid/where/internal/observability"
	"github.com/couchcryptid/where/internal/pipeline"
	"github.com/couchcryptid/where/internal/probes"
	"github.com/couchcryptid/where/internal/where"
)

// changeBuffer bounds how far the publisher may lag behind detection.
const changeBuffer = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	opts, err := probes.DetectOptions(cfg)
	if err != nil {
		logger.Error("invalid detect options", "error", err)
		os.Exit(1)
	}

	set, err := probes.Build(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to build probes", "error", err)
		os.Exit(1)
	}

	w := where.New(where.Config{
		Probes:         set.Probes,
		AsyncProbes:    set.AsyncProbes,
		Logger:         logger,
		Metrics:        metrics,
		UpdateInterval: cfg.UpdateInterval,
		DisplayLocale:  cfg.DisplayLocale,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := readiness{w}

	// Start the change publisher (feature-flagged via KAFKA_ENABLED).
	// The publisher outlives the signal so it can drain the change stream;
	// its context is cancelled only if the drain overruns the shutdown timeout.
	var writer *kafkaadapter.Writer
	unsubscribe := func() {}
	publisherCtx, cancelPublisher := context.WithCancel(context.Background())
	defer cancelPublisher()
	publisherDone := make(chan struct{})
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		var changes <-chan where.Change
		changes, unsubscribe = w.Subscribe(changeBuffer)

		p := pipeline.New(changes, writer, logger, metrics, clockwork.NewRealClock(), cfg.BatchSize, cfg.BatchFlushInterval)
		ready = append(ready, p)
		go func() {
			defer close(publisherDone)
			if err := p.Run(publisherCtx); err != nil {
				logger.Error("publisher error", "error", err)
			}
		}()
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		close(publisherDone)
		logger.Info("kafka publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, w, ready, cfg.DisplayLocale, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	applied := w.Detect(ctx, opts)
	logger.Info("detection started", "options", applied.String())
	if best, ok := w.Best(); ok {
		logger.Info("initial region", "region", best.RegionCode(), "source", best.Source())
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	w.Stop()
	unsubscribe()
	select {
	case <-publisherDone:
	case <-shutdownCtx.Done():
		logger.Warn("publisher did not drain before shutdown timeout")
		cancelPublisher()
		<-publisherDone
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := set.Close(); err != nil {
		logger.Error("probe close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// readiness is ready when every checker is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
