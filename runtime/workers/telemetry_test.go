package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTelemetryWorker_SamplesOnInterval(t *testing.T) {
	req := require.New(t)
	var calls atomic.Int32
	provider := func() observability.RelayStats {
		calls.Add(1)
		return observability.RelayStats{Sessions: 2}
	}
	monitoring := observability.NewMonitoringManager(slog.Default(), provider, nil)
	worker := NewTelemetryWorker(slog.Default(), 10*time.Millisecond, monitoring)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Run returns nil once the context ends
	req.NoError(worker.Run(ctx))
	req.GreaterOrEqual(calls.Load(), int32(2))
	req.Equal(2, monitoring.GetLatest().Sessions)
}
