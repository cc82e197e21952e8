package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Counters are cumulative relay counters, updated lock-free from the hot path.
type Counters struct {
	connections    uint64
	disconnections uint64
	delivered      uint64
	dropped        uint64
	stale          uint64
	malformed      uint64
	rejected       uint64
}

func NewCounters() *Counters { return &Counters{} }

func (c *Counters) Connected() { atomic.AddUint64(&c.connections, 1) }
func (c *Counters) Disconnected() { atomic.AddUint64(&c.disconnections, 1) }
func (c *Counters) Dropped() { atomic.AddUint64(&c.dropped, 1) }
func (c *Counters) Stale() { atomic.AddUint64(&c.stale, 1) }
func (c *Counters) Malformed() { atomic.AddUint64(&c.malformed, 1) }
func (c *Counters) Rejected() { atomic.AddUint64(&c.rejected, 1) }

func (c *Counters) Delivered(n int) {
	if n > 0 {
		atomic.AddUint64(&c.delivered, uint64(n))
	}
}

// RelayStats aggregates what the relay exposes on /healthz and in telemetry logs.
type RelayStats struct {
	Sessions       int     `json:"sessions"`
	Identities     int     `json:"identities"`
	Rooms          int     `json:"rooms"`
	Connections    uint64  `json:"connections"`
	Disconnections uint64  `json:"disconnections"`
	Delivered      uint64  `json:"delivered"`
	Dropped        uint64  `json:"dropped"`
	Stale          uint64  `json:"stale"`
	Malformed      uint64  `json:"malformed"`
	Rejected       uint64  `json:"rejected"`
	AllocMemMb     uint64  `json:"alloc_mem_mb"`
	NumGC          uint32  `json:"num_gc"`
	RSSBytes       uint64  `json:"rss_bytes,omitempty"`
	CPUPercent     float64 `json:"cpu_percent,omitempty"`
}

func (c *Counters) Fill(stats *RelayStats) {
	stats.Connections = atomic.LoadUint64(&c.connections)
	stats.Disconnections = atomic.LoadUint64(&c.disconnections)
	stats.Delivered = atomic.LoadUint64(&c.delivered)
	stats.Dropped = atomic.LoadUint64(&c.dropped)
	stats.Stale = atomic.LoadUint64(&c.stale)
	stats.Malformed = atomic.LoadUint64(&c.malformed)
	stats.Rejected = atomic.LoadUint64(&c.rejected)
}

// StatsProvider returns the live part of RelayStats (sessions, rooms, counters).
type StatsProvider func() RelayStats

// MonitoringManager keeps the latest telemetry sample for readers.
type MonitoringManager struct {
	log         *slog.Logger
	mu          sync.RWMutex
	provider    StatsProvider
	process     ProcessSampler
	latestStats RelayStats
	LastCheck   time.Time
}

func NewMonitoringManager(log *slog.Logger, provider StatsProvider, process ProcessSampler) *MonitoringManager {
	return &MonitoringManager{
		log:       log,
		provider:  provider,
		process:   process,
		LastCheck: time.Now(),
	}
}

// Sample refreshes the latest stats from the provider, Go runtime and process.
func (mm *MonitoringManager) Sample() RelayStats {
	stats := mm.provider()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC

	if mm.process != nil {
		rss, cpu, err := mm.process.Sample()
		if err != nil {
			mm.log.Debug("Process stats unavailable", "error", err)
		} else {
			stats.RSSBytes = rss
			stats.CPUPercent = cpu
		}
	}

	mm.mu.Lock()
	mm.latestStats = stats
	mm.LastCheck = time.Now()
	mm.mu.Unlock()
	return stats
}

func (mm *MonitoringManager) GetLatest() RelayStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
