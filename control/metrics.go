// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for gateway session/worker activity.
// Exposes counters and gauges in a thread-safe map with dynamic
// registration, read back wholesale by the debug HTTP surface.

package control

import (
	"sync"
	"time"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key, treated as a gauge: later calls
// overwrite earlier ones (e.g. a resident session count).
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Increment treats key as a monotonic counter, adding delta to
// whatever int64 currently sits there (0 if absent or of a different
// type) and returning the new total. Used for activity totals like
// "managementConnectsTotal" that should never be clobbered by a racing
// Set, only added to.
func (mr *MetricsRegistry) Increment(key string, delta int64) int64 {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	cur, _ := mr.metrics[key].(int64)
	cur += delta
	mr.metrics[key] = cur
	mr.updated = time.Now()
	return cur
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
