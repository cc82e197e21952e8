package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// TelemetryWorker samples relay and process stats on a fixed interval and logs them.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	monitoring     *observability.MonitoringManager
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration,
	monitoring *observability.MonitoringManager) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		metricInterval: metricInterval,
		monitoring:     monitoring,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			stats := w.monitoring.Sample()
			w.log.Info("Relay stats",
				"sessions", stats.Sessions,
				"identities", stats.Identities,
				"rooms", stats.Rooms,
				"delivered", stats.Delivered,
				"dropped", stats.Dropped,
				"stale", stats.Stale,
				"malformed", stats.Malformed,
				"rejected", stats.Rejected,
				"mem_mb", stats.AllocMemMb,
				"rss_bytes", stats.RSSBytes,
				"cpu_percent", stats.CPUPercent,
			)
		}
	}
}
