// internal/monitoring/health.go
package monitoring

import (
	"runtime"
	"time"
)

// Health states reported by the checker.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// RegionChecker is the subset of the region manager the health checker
// needs.
type RegionChecker interface {
	RegionIDs() []string
	AvailableRegions() []string
}

// CheckResult is one named health check outcome.
type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthReport aggregates all checks.
type HealthReport struct {
	Status    string        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
}

// HealthChecker runs system and region health checks.
type HealthChecker struct {
	regions       RegionChecker
	startTime     time.Time
	maxGoroutines int
	maxMemoryMB   uint64
}

// NewHealthChecker creates a checker over the region manager. Thresholds
// have conservative defaults.
func NewHealthChecker(regions RegionChecker) *HealthChecker {
	return &HealthChecker{
		regions:       regions,
		startTime:     time.Now(),
		maxGoroutines: 10000,
		maxMemoryMB:   4096,
	}
}

// Check runs all health checks and aggregates the worst status.
func (hc *HealthChecker) Check() HealthReport {
	checks := []CheckResult{
		hc.checkMemory(),
		hc.checkGoroutines(),
		hc.checkRegions(),
	}

	status := StatusHealthy
	for _, c := range checks {
		if c.Status == StatusUnhealthy {
			status = StatusUnhealthy
			break
		}
		if c.Status == StatusDegraded {
			status = StatusDegraded
		}
	}

	return HealthReport{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now(),
		Uptime:    time.Since(hc.startTime).Round(time.Second).String(),
	}
}

func (hc *HealthChecker) checkMemory() CheckResult {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	usedMB := m.Alloc / 1024 / 1024

	result := CheckResult{Name: "memory", Status: StatusHealthy}
	if usedMB > hc.maxMemoryMB {
		result.Status = StatusUnhealthy
		result.Message = "memory usage above threshold"
	} else if usedMB > hc.maxMemoryMB*8/10 {
		result.Status = StatusDegraded
		result.Message = "memory usage approaching threshold"
	}
	return result
}

func (hc *HealthChecker) checkGoroutines() CheckResult {
	count := runtime.NumGoroutine()

	result := CheckResult{Name: "goroutines", Status: StatusHealthy}
	if count > hc.maxGoroutines {
		result.Status = StatusUnhealthy
		result.Message = "goroutine count above threshold"
	}
	return result
}

func (hc *HealthChecker) checkRegions() CheckResult {
	result := CheckResult{Name: "regions", Status: StatusHealthy}
	if hc.regions == nil {
		result.Status = StatusDegraded
		result.Message = "no region manager attached"
		return result
	}

	total := len(hc.regions.RegionIDs())
	available := len(hc.regions.AvailableRegions())

	switch {
	case available == 0:
		result.Status = StatusUnhealthy
		result.Message = "no regions available"
	case available < total:
		result.Status = StatusDegraded
		result.Message = "some regions cooling down"
	}
	return result
}
