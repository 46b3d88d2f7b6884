// Package agent implements the generic retrying task executor and the
// concrete agents built on it. The executor owns region selection, session
// acquisition, rate limiting, and retry-with-rotation; agent-specific logic
// plugs in through the Executor interface.
package agent

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/valpere/AgentScrapexter/internal/monitoring"
	"github.com/valpere/AgentScrapexter/internal/region"
	"github.com/valpere/AgentScrapexter/internal/utils"
)

// Backoff defaults for the retry path.
const (
	DefaultBaseBackoff = 500 * time.Millisecond
	DefaultMaxBackoff  = 10 * time.Second
)

// Executor is the agent-specific core logic invoked once per attempt with a
// checked-out regional session.
type Executor interface {
	ExecuteCore(ctx context.Context, task *Task, session *region.Session) (interface{}, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *Task, session *region.Session) (interface{}, error)

func (f ExecutorFunc) ExecuteCore(ctx context.Context, task *Task, session *region.Session) (interface{}, error) {
	return f(ctx, task, session)
}

// Config tunes the base executor.
type Config struct {
	RateLimit   RateLimiterConfig `yaml:"rate_limit" json:"rate_limit"`
	BaseBackoff time.Duration     `yaml:"base_backoff" json:"base_backoff"`
	MaxBackoff  time.Duration     `yaml:"max_backoff" json:"max_backoff"`
}

func (c *Config) applyDefaults() {
	c.RateLimit.applyDefaults()
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
}

// BaseAgent is the composed retrying executor. It is safe for concurrent
// use; each task owns its session for the duration of one attempt.
type BaseAgent struct {
	name     string
	regions  *region.Manager
	limiter  *RollingWindowRateLimiter
	perf     *PerformanceMonitor
	logger   utils.Logger
	metrics  *monitoring.Metrics
	config   Config

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBaseAgent creates an executor bound to a region manager.
func NewBaseAgent(name string, regions *region.Manager, config *Config) *BaseAgent {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.applyDefaults()

	return &BaseAgent{
		name:    name,
		regions: regions,
		limiter: NewRollingWindowRateLimiter(&cfg.RateLimit),
		perf:    NewPerformanceMonitor(),
		logger:  utils.NewComponentLogger("agent." + name),
		metrics: monitoring.Default(),
		config:  cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Performance exposes the agent's operation timings.
func (a *BaseAgent) Performance() *PerformanceMonitor {
	return a.perf
}

// ExecuteWithRotation runs a task through the retry state machine. All
// recoverable per-task failures are folded into the Result; a non-nil error
// is returned only for infrastructure faults such as no constructible
// session anywhere.
func (a *BaseAgent) ExecuteWithRotation(ctx context.Context, task *Task, executor Executor) (*Result, error) {
	start := time.Now()
	result := &Result{TaskID: task.ID}

	a.metrics.TaskStarted(a.name)
	defer a.metrics.TaskFinished(a.name)

	var currentRegion string
	var lastErr error

	maxAttempts := task.MaxRetries + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var err error
		if attempt == 0 {
			currentRegion, err = a.regions.GetOptimalRegion(task.RegionPreference, string(task.Type))
		} else {
			currentRegion, err = a.regions.RotateRegion(currentRegion, string(task.Type))
		}
		if err != nil {
			// No region at all is an infrastructure fault.
			return nil, err
		}

		session, err := a.regions.GetRegionalSession(currentRegion)
		if err != nil {
			var regionErr *utils.RegionUnavailableError
			if errors.As(err, &regionErr) && attempt < maxAttempts-1 {
				// The region's infrastructure may be down while others work;
				// rotate before giving up.
				lastErr = err
				result.Attempts++
				continue
			}
			return nil, err
		}

		waitStart := time.Now()
		if err := a.limiter.Wait(ctx); err != nil {
			a.regions.ReleaseSession(session, true)
			return nil, err
		}
		if wait := time.Since(waitStart); wait > time.Millisecond {
			a.metrics.RecordRateLimitWait(a.name, wait)
		}

		a.perf.StartOperation("execute")
		attemptStart := time.Now()
		payload, execErr := executor.ExecuteCore(ctx, task, session)
		attemptDuration := time.Since(attemptStart)
		a.perf.EndOperation("execute")

		result.Attempts++
		result.RegionUsed = currentRegion

		success := execErr == nil
		a.regions.UpdateRegionalMetrics(currentRegion, success, attemptDuration)
		a.regions.ReleaseSession(session, success)
		a.metrics.RecordTask(a.name, currentRegion, success, attemptDuration)

		if success {
			result.Success = true
			result.Data = payload
			result.ExecutionMs = time.Since(start).Milliseconds()
			result.Metrics = a.resultMetrics(attemptDuration, result.Attempts)
			result.CompletedAt = time.Now()
			return result, nil
		}

		lastErr = execErr
		a.handleFailureSignals(currentRegion, execErr)

		if payload != nil {
			// Agents may return a partial payload alongside a terminal
			// error, e.g. an empty link list on a challenge page.
			result.Data = payload
		}

		if !utils.IsRetryable(execErr) {
			a.logger.WithFields(map[string]interface{}{
				"task_id": task.ID,
				"region":  currentRegion,
				"error":   execErr.Error(),
			}).Warn("terminal failure, not retrying")
			break
		}

		if attempt < maxAttempts-1 {
			backoff := a.jitteredBackoff(attempt)
			a.logger.WithFields(map[string]interface{}{
				"task_id": task.ID,
				"region":  currentRegion,
				"attempt": attempt + 1,
				"backoff": backoff.String(),
			}).Info("retrying after failure")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	result.Success = false
	if lastErr != nil {
		result.ErrorMessage = lastErr.Error()
	}
	result.ExecutionMs = time.Since(start).Milliseconds()
	result.Metrics = a.resultMetrics(0, result.Attempts)
	result.CompletedAt = time.Now()
	return result, nil
}

// handleFailureSignals updates region health from the failure type. A
// rate-limit signal puts the region into cool-down.
func (a *BaseAgent) handleFailureSignals(regionID string, err error) {
	var sig *utils.BotDetectionSignal
	if errors.As(err, &sig) && sig.StatusCode == 429 {
		a.regions.ReportRateLimited(regionID)
		a.metrics.RecordCooldown(regionID)
	}
}

// jitteredBackoff computes exponential backoff with 50% jitter.
func (a *BaseAgent) jitteredBackoff(attempt int) time.Duration {
	backoff := a.config.BaseBackoff << uint(attempt)
	if backoff > a.config.MaxBackoff {
		backoff = a.config.MaxBackoff
	}

	a.mu.Lock()
	jitter := time.Duration(a.rng.Int63n(int64(backoff)/2 + 1))
	a.mu.Unlock()
	return backoff/2 + jitter
}

func (a *BaseAgent) resultMetrics(lastAttempt time.Duration, attempts int) map[string]interface{} {
	stats := a.limiter.Stats()
	return map[string]interface{}{
		"attempts":           attempts,
		"last_attempt_ms":    lastAttempt.Milliseconds(),
		"rate_limit_allowed": stats.Allowed,
	}
}
