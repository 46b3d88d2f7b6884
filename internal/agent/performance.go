// internal/agent/performance.go
package agent

import (
	"sync"
	"time"
)

// PerformanceMonitor tracks named operation timings. Operations are started
// and ended by name; ending an operation that was never started reports a
// zero duration instead of an error.
type PerformanceMonitor struct {
	mu        sync.Mutex
	active    map[string]time.Time
	counts    map[string]int64
	totals    map[string]time.Duration
}

// NewPerformanceMonitor creates an empty monitor.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		active: make(map[string]time.Time),
		counts: make(map[string]int64),
		totals: make(map[string]time.Duration),
	}
}

// StartOperation begins timing a named operation. Starting the same name
// again restarts its timer.
func (pm *PerformanceMonitor) StartOperation(name string) {
	pm.mu.Lock()
	pm.active[name] = time.Now()
	pm.mu.Unlock()
}

// EndOperation stops timing a named operation and folds the duration into
// the aggregates. An unstarted name yields zero.
func (pm *PerformanceMonitor) EndOperation(name string) time.Duration {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	start, ok := pm.active[name]
	if !ok {
		return 0
	}
	delete(pm.active, name)

	duration := time.Since(start)
	pm.counts[name]++
	pm.totals[name] += duration
	return duration
}

// OperationStats summarizes one named operation.
type OperationStats struct {
	Count   int64         `json:"count"`
	Total   time.Duration `json:"total"`
	Average time.Duration `json:"average"`
}

// Stats returns aggregates for every completed operation name.
func (pm *PerformanceMonitor) Stats() map[string]OperationStats {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	out := make(map[string]OperationStats, len(pm.counts))
	for name, count := range pm.counts {
		total := pm.totals[name]
		out[name] = OperationStats{
			Count:   count,
			Total:   total,
			Average: total / time.Duration(count),
		}
	}
	return out
}

// Count returns how many times a named operation completed.
func (pm *PerformanceMonitor) Count(name string) int64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.counts[name]
}

// Average returns the mean duration of a named operation, zero when the
// operation never completed.
func (pm *PerformanceMonitor) Average(name string) time.Duration {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.counts[name] == 0 {
		return 0
	}
	return pm.totals[name] / time.Duration(pm.counts[name])
}

// Reset clears all timers and aggregates.
func (pm *PerformanceMonitor) Reset() {
	pm.mu.Lock()
	pm.active = make(map[string]time.Time)
	pm.counts = make(map[string]int64)
	pm.totals = make(map[string]time.Duration)
	pm.mu.Unlock()
}
