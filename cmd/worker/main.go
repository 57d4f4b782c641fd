// The worker is the session janitor: it consumes session-processed
// events and periodically sweeps the active-session index, removing
// entries whose Redis hashes have expired.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowbit-labs/intake-agent/internal/bootstrap"
	"github.com/flowbit-labs/intake-agent/internal/config"
	"github.com/flowbit-labs/intake-agent/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	sweep := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		start := time.Now()
		removed, err := app.Memory.CleanupExpired(sweepCtx)
		workerMetrics.FinishSweep("worker", removed, time.Since(start), err)
		if err != nil {
			app.Logger.Error("session sweep failed", "error", err)
			return
		}
		if removed > 0 {
			app.Logger.Info("session sweep removed stale entries", "removed", removed)
		}
	}

	interval := time.Duration(cfg.JanitorSweepSeconds) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		sweep()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()

	app.Logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSessionProcessed(ctx, func(handlerCtx context.Context, sessionID string) error {
		session, err := app.Memory.GetSession(handlerCtx, sessionID)
		workerMetrics.RecordSessionEvent("worker", err)
		if err != nil {
			return err
		}
		app.Logger.Info("session processed",
			"session_id", session.ID,
			"input_type", session.InputType,
			"intent", session.Intent,
			"steps", len(session.ProcessingHistory),
		)
		sweep()
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
