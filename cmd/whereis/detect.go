package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/where/internal/config"
	"github.com/couchcryptid/where/internal/observability"
	"github.com/couchcryptid/where/internal/probes"
	"github.com/couchcryptid/where/internal/where"
)

var (
	continuousFlag bool
	networkFlag    bool
	locationFlag   bool
	permissionFlag bool
	waitFlag       time.Duration
	outputFlag     string
	logLevelFlag   string
)

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&continuousFlag, "continuous", false, "keep probing and print every change until interrupted")
	flags.BoolVar(&networkFlag, "network", false, "look up the external IP address")
	flags.BoolVar(&locationFlag, "location", false, "use location services")
	flags.BoolVar(&permissionFlag, "permission", false, "request location permission (implies --location)")
	flags.DurationVar(&waitFlag, "wait", 10*time.Second, "how long to wait for network and location probes")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "text", "output format: text, json, or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log", "warn", "log level written to stderr")
}

func flagOptions() where.Options {
	var opts where.Options
	if continuousFlag {
		opts |= where.Continuous
	}
	if networkFlag {
		opts |= where.UseNetwork
	}
	if locationFlag {
		opts |= where.UseLocationServices
	}
	if permissionFlag {
		opts |= where.RequestPermission
	}
	return opts.Normalize()
}

func detect(cmd *cobra.Command, _ []string) error {
	format, err := parseFormat(outputFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewTextLogger(cmd.ErrOrStderr(), logLevelFlag)
	metrics := observability.NewMetricsForTesting()

	set, err := probes.Build(cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer set.Close()

	w := where.New(where.Config{
		Probes:         set.Probes,
		AsyncProbes:    set.AsyncProbes,
		Logger:         logger,
		Metrics:        metrics,
		UpdateInterval: cfg.UpdateInterval,
		DisplayLocale:  cfg.DisplayLocale,
	})
	defer w.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := flagOptions()
	if opts.Has(where.Continuous) {
		return stream(ctx, cmd, w, opts, format)
	}

	w.Detect(ctx, opts)
	waitForProbes(ctx, w, waitFlag, logger)
	return render(cmd.OutOrStdout(), format, w.All())
}

// waitForProbes polls until no asynchronous probe is pending or the wait
// elapses.
func waitForProbes(ctx context.Context, w *where.Where, wait time.Duration, logger *slog.Logger) {
	if !w.IsDetecting() {
		return
	}
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for w.IsDetecting() {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			logger.Warn("gave up waiting for probes", "wait", wait)
			return
		case <-tick.C:
		}
	}
}

// stream prints each change until the context is cancelled.
func stream(ctx context.Context, cmd *cobra.Command, w *where.Where, opts where.Options, format outputFormat) error {
	changes, unsubscribe := w.Subscribe(64)
	defer unsubscribe()

	w.Detect(ctx, opts)
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			if err := renderChange(cmd.OutOrStdout(), format, c); err != nil {
				return err
			}
		}
	}
}
