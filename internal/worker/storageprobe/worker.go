package storageprobe

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type statusSetter interface {
	SetServing(serving bool)
}

// Worker periodically checks the order store and publishes the result as health status.
type Worker struct {
	store        pinger
	status       statusSetter
	pollInterval time.Duration
	timeout      time.Duration
	healthy      *bool
	stopCh       chan struct{}
}

// NewWorker creates a new storage probe worker.
func NewWorker(store pinger, status statusSetter) *Worker {
	pollIntervalSeconds := viper.GetInt("orders.probe.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 15
	}

	return &Worker{
		store:        store,
		status:       status,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		timeout:      5 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start probes once immediately, then on every tick until stopped.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Storage probe worker started", "poll_interval", w.pollInterval)
	w.probe(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Storage probe worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Storage probe worker stopped")

			return
		case <-ticker.C:
			w.probe(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// probe runs one check and logs only state changes.
func (w *Worker) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.store.Ping(ctx)
	healthy := err == nil

	if w.healthy == nil || *w.healthy != healthy {
		if healthy {
			slog.Info("Order store is writable")
		} else {
			slog.Error("Order store is not writable", "error", err)
		}
	}

	w.healthy = &healthy
	w.status.SetServing(healthy)
}
