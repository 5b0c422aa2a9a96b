package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/slothmock/SlothFinanceTracker/internal/aggregator"
	"github.com/slothmock/SlothFinanceTracker/internal/cache"
	"github.com/slothmock/SlothFinanceTracker/internal/config"
	"github.com/slothmock/SlothFinanceTracker/internal/server"
)

func runServe(cmd *cobra.Command, args []string) error {
	metrics := server.NewMetrics()

	// the server is built before the engine so it can be registered as the
	// cycle notifier; stateFn is bound after
	var eng *engine
	srv := server.New(serverConfig(cmd), metrics, func() aggregator.State {
		if eng == nil {
			return aggregator.StateIdle
		}
		return eng.aggregator.State()
	})

	eng, err := buildEngine(cmd, aggregator.WithNotifier(srv), aggregator.WithObserver(metrics))
	if err != nil {
		return err
	}
	metrics.RegisterCacheStats("prices", func() cache.Stats { return eng.prices.Stats() })

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval, _ := cmd.Flags().GetDuration("interval")
	go refreshLoop(ctx, eng, interval)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func refreshLoop(ctx context.Context, eng *engine, interval time.Duration) {
	run := func() {
		cycleCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		result := eng.aggregator.RunCycle(cycleCtx, eng.settings.ETHAddress)
		log.Info().
			Str("cycle_id", result.CycleID).
			Float64("total_value", result.TotalValue).
			Msg("refresh cycle complete")
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func serverConfig(cmd *cobra.Command) server.Config {
	cfg := server.DefaultConfig()
	settingsPath, _ := cmd.Flags().GetString("settings")
	if settings, err := config.LoadSettings(settingsPath); err == nil {
		cfg.Host = settings.HTTP.Host
		cfg.Port = settings.HTTP.Port
	}
	return cfg
}
