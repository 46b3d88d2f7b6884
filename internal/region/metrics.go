// internal/region/metrics.go
package region

import (
	"sync"
	"time"
)

// Metrics accumulates request outcomes for one region. Counters are
// process-wide and reset only on restart.
type Metrics struct {
	mu              sync.Mutex
	totalRequests   int64
	successRequests int64
	failedRequests  int64
	avgResponseTime time.Duration
}

// Record folds one outcome into the counters and the running average
// response time.
func (m *Metrics) Record(success bool, responseTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	if success {
		m.successRequests++
	} else {
		m.failedRequests++
	}

	// Incremental running average keeps the update O(1).
	m.avgResponseTime += (responseTime - m.avgResponseTime) / time.Duration(m.totalRequests)
}

// SuccessRate returns the fraction of successful requests in [0, 1]. A
// region with no recorded traffic reports 1 so new regions are not
// penalized by selection scoring.
func (m *Metrics) SuccessRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totalRequests == 0 {
		return 1.0
	}
	return float64(m.successRequests) / float64(m.totalRequests)
}

// Snapshot is a point-in-time copy of a region's metrics.
type Snapshot struct {
	TotalRequests   int64         `json:"total_requests"`
	SuccessRequests int64         `json:"successful_requests"`
	FailedRequests  int64         `json:"failed_requests"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	SuccessRate     float64       `json:"success_rate"`
}

// Snapshot returns a consistent copy of the metrics.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate := 1.0
	if m.totalRequests > 0 {
		rate = float64(m.successRequests) / float64(m.totalRequests)
	}
	return Snapshot{
		TotalRequests:   m.totalRequests,
		SuccessRequests: m.successRequests,
		FailedRequests:  m.failedRequests,
		AvgResponseTime: m.avgResponseTime,
		SuccessRate:     rate,
	}
}
