// Package region owns the regional session pools: placement and rotation of
// tasks across regions, per-region health tracking with rate-limit
// cool-downs, and recycling of pooled browser/HTTP sessions.
package region

import (
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/AgentScrapexter/internal/browser"
	"github.com/valpere/AgentScrapexter/internal/utils"
)

// BrowserFactory constructs a browser client for a new session. Tests swap
// in a fake; production uses browser.NewChromeClient.
type BrowserFactory func(cfg *browser.Config) (browser.Client, error)

// Observer receives session lifecycle notifications so external collectors
// can count constructions and recycles without this package depending on
// them.
type Observer interface {
	SessionCreated(region string)
	SessionRecycled(region, reason string)
}

// regionState tracks availability of one region.
type regionState struct {
	spec Spec

	mu            sync.Mutex
	available     bool
	failureCount  int
	lastFailure   time.Time
	cooldownUntil time.Time
}

// Manager owns the region pool. All shared state is internally
// synchronized; callers treat returned Sessions as checked out for the
// duration of one task.
type Manager struct {
	config  *Config
	regions map[string]*regionState
	ids     []string // sorted, for deterministic iteration

	mu           sync.Mutex
	currentIndex int
	pools        map[string][]*Session
	checkedOut   map[string]int
	metrics      map[string]*Metrics
	rng          *rand.Rand
	closed       bool

	browserFactory BrowserFactory
	observer       Observer
	logger         utils.Logger
}

// Option customizes manager construction.
type Option func(*Manager)

// WithBrowserFactory overrides how browser clients are constructed.
func WithBrowserFactory(f BrowserFactory) Option {
	return func(m *Manager) { m.browserFactory = f }
}

// WithObserver attaches a session lifecycle observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// NewManager creates a region manager. At least one region must be
// configured.
func NewManager(config *Config, opts ...Option) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Regions) == 0 {
		return nil, fmt.Errorf("no regions configured: %w", utils.ErrNoRegionsAvailable)
	}

	m := &Manager{
		config:     config,
		regions:    make(map[string]*regionState, len(config.Regions)),
		pools:      make(map[string][]*Session),
		checkedOut: make(map[string]int),
		metrics:    make(map[string]*Metrics, len(config.Regions)),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     utils.NewComponentLogger("region"),
		browserFactory: func(cfg *browser.Config) (browser.Client, error) {
			return browser.NewChromeClient(cfg)
		},
	}

	for _, spec := range config.Regions {
		if _, exists := m.regions[spec.ID]; exists {
			return nil, fmt.Errorf("duplicate region id %q", spec.ID)
		}
		m.regions[spec.ID] = &regionState{spec: spec, available: true}
		m.metrics[spec.ID] = &Metrics{}
		m.ids = append(m.ids, spec.ID)
	}
	sort.Strings(m.ids)

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// GetOptimalRegion picks a region for a task. A region preference is
// honored when that region is not cooling down; otherwise the selection
// strategy configured for the task type applies.
func (m *Manager) GetOptimalRegion(preference, taskType string) (string, error) {
	available := m.availableIDs()
	if len(available) == 0 {
		return "", utils.ErrNoRegionsAvailable
	}

	if preference != "" {
		for _, id := range available {
			if id == preference {
				return id, nil
			}
		}
	}

	switch m.config.selectionFor(taskType) {
	case SelectLoadBalanced:
		return m.selectLoadBalanced(available), nil
	case SelectRandom:
		return m.selectRandom(available), nil
	case SelectIntelligent:
		return m.selectIntelligent(available), nil
	default:
		return m.selectRoundRobin(available), nil
	}
}

// selectRoundRobin cycles through available regions in sorted-id order.
func (m *Manager) selectRoundRobin(available []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := available[m.currentIndex%len(available)]
	m.currentIndex++
	return id
}

// selectLoadBalanced picks the region with the fewest checked-out sessions.
func (m *Manager) selectLoadBalanced(available []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := available[0]
	bestLoad := m.checkedOut[best]
	for _, id := range available[1:] {
		if load := m.checkedOut[id]; load < bestLoad {
			best, bestLoad = id, load
		}
	}
	return best
}

// selectRandom picks uniformly among available regions.
func (m *Manager) selectRandom(available []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return available[m.rng.Intn(len(available))]
}

// selectIntelligent scores each region by load, success rate, and average
// response time, picking the maximum. Candidates arrive in sorted-id order,
// so ties resolve deterministically to the first scorer.
func (m *Manager) selectIntelligent(available []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := available[0]
	bestScore := m.scoreLocked(best)
	for _, id := range available[1:] {
		if score := m.scoreLocked(id); score > bestScore {
			best, bestScore = id, score
		}
	}
	return best
}

func (m *Manager) scoreLocked(id string) float64 {
	snap := m.metrics[id].Snapshot()
	load := float64(m.checkedOut[id])
	avgMs := float64(snap.AvgResponseTime.Milliseconds())
	return 100 - 5*load + 50*snap.SuccessRate - 10*avgMs
}

// availableIDs returns regions outside their cool-down and failure windows,
// in sorted order. Regions past their recovery window are reset in place.
func (m *Manager) availableIDs() []string {
	now := time.Now()
	var available []string

	for _, id := range m.ids {
		state := m.regions[id]
		state.mu.Lock()

		if !state.available && now.Sub(state.lastFailure) > m.config.RecoveryTime {
			state.available = true
			state.failureCount = 0
		}

		ok := state.available &&
			state.failureCount < m.config.FailureThreshold &&
			now.After(state.cooldownUntil)
		state.mu.Unlock()

		if ok {
			available = append(available, id)
		}
	}
	return available
}

// GetRegionalSession returns a healthy pooled session for a region or
// constructs a new one. It fails only when no session can be constructed at
// all.
func (m *Manager) GetRegionalSession(regionID string) (*Session, error) {
	state, exists := m.regions[regionID]
	if !exists {
		return nil, &utils.RegionUnavailableError{
			Region: regionID,
			Err:    fmt.Errorf("unknown region"),
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, utils.ErrSessionPoolClosed
	}

	// Reuse the newest healthy pooled session, retiring expired ones.
	pool := m.pools[regionID]
	for len(pool) > 0 {
		session := pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		if session.expired(m.config.SessionMaxAge, m.config.SessionMaxRequests) {
			m.notifyRecycled(regionID, "expired")
			go session.close()
			continue
		}
		m.pools[regionID] = pool
		m.checkedOut[regionID]++
		m.mu.Unlock()
		return session, nil
	}
	m.pools[regionID] = pool
	m.mu.Unlock()

	session, err := m.newSession(state.spec)
	if err != nil {
		return nil, &utils.RegionUnavailableError{Region: regionID, Err: err}
	}

	m.mu.Lock()
	m.checkedOut[regionID]++
	m.mu.Unlock()
	m.notifyCreated(regionID)
	return session, nil
}

// regionTransport builds the HTTP transport for a region, routed through
// its endpoint when one is configured.
func regionTransport(endpoint string) (http.RoundTripper, error) {
	if endpoint == "" {
		return http.DefaultTransport, nil
	}

	proxyURL, err := url.Parse(endpoint)
	if err != nil || proxyURL.Scheme == "" || proxyURL.Host == "" {
		return nil, fmt.Errorf("invalid region endpoint %q", endpoint)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(proxyURL)
	return transport, nil
}

func (m *Manager) notifyCreated(regionID string) {
	if m.observer != nil {
		m.observer.SessionCreated(regionID)
	}
}

func (m *Manager) notifyRecycled(regionID, reason string) {
	if m.observer != nil {
		m.observer.SessionRecycled(regionID, reason)
	}
}

// newSession constructs a browser context and HTTP client carrying the
// region's identity. When the region has an endpoint, both egress through
// it.
func (m *Manager) newSession(spec Spec) (*Session, error) {
	cfg := *browser.DefaultConfig()
	if m.config.Browser != nil {
		cfg = *m.config.Browser
	}
	if spec.Endpoint != "" {
		cfg.ProxyServer = spec.Endpoint
	}
	if spec.Locale != "" {
		cfg.Locale = spec.Locale
	}
	if spec.Timezone != "" {
		cfg.TimezoneID = spec.Timezone
	}
	if len(spec.Headers) > 0 {
		headers := make(map[string]string, len(spec.Headers))
		for k, v := range spec.Headers {
			headers[k] = v
		}
		cfg.ExtraHeaders = headers
	}

	transport, err := regionTransport(spec.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := m.browserFactory(&cfg)
	if err != nil {
		return nil, fmt.Errorf("browser construction failed: %w", err)
	}

	httpClient := &http.Client{
		Timeout: m.config.HTTPTimeout,
		Transport: &headerTransport{
			base:    transport,
			headers: spec.Headers,
		},
	}

	now := time.Now()
	session := &Session{
		Region:         spec.ID,
		ID:             uuid.NewString(),
		Browser:        client,
		HTTPClient:     httpClient,
		createdAt:      now,
		lastUsedAt:     now,
		remainingQuota: m.config.SessionQuota,
		active:         true,
	}

	m.logger.WithFields(map[string]interface{}{
		"region":     spec.ID,
		"session_id": session.ID,
	}).Debug("constructed regional session")

	return session, nil
}

// ReleaseSession returns a checked-out session to its region's pool.
// Unhealthy or expired sessions are closed instead of pooled.
func (m *Manager) ReleaseSession(session *Session, healthy bool) {
	if session == nil {
		return
	}

	m.mu.Lock()
	if m.checkedOut[session.Region] > 0 {
		m.checkedOut[session.Region]--
	}
	closed := m.closed
	keep := healthy && !closed &&
		!session.expired(m.config.SessionMaxAge, m.config.SessionMaxRequests)
	if keep {
		m.pools[session.Region] = append(m.pools[session.Region], session)
	}
	m.mu.Unlock()

	if !keep {
		switch {
		case closed:
			m.notifyRecycled(session.Region, "shutdown")
		case !healthy:
			m.notifyRecycled(session.Region, "unhealthy")
		default:
			m.notifyRecycled(session.Region, "expired")
		}
		session.close()
	}
}

// RotateRegion picks a different region after a failure, using the
// task-type's rotation strategy. It returns the current region only when no
// alternative exists.
func (m *Manager) RotateRegion(current, taskType string) (string, error) {
	available := m.availableIDs()

	var candidates []string
	for _, id := range available {
		if id != current {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		if len(available) > 0 {
			return available[0], nil
		}
		return "", utils.ErrNoRegionsAvailable
	}

	switch m.config.rotationFor(taskType) {
	case RotateWeightedRandom:
		return m.rotateWeighted(candidates), nil
	case RotateRandom:
		m.mu.Lock()
		defer m.mu.Unlock()
		return candidates[m.rng.Intn(len(candidates))], nil
	default:
		return m.rotateSequential(current, candidates), nil
	}
}

// rotateSequential returns the next candidate after current in sorted-id
// order, wrapping around.
func (m *Manager) rotateSequential(current string, candidates []string) string {
	for _, id := range candidates {
		if id > current {
			return id
		}
	}
	return candidates[0]
}

// rotateWeighted samples candidates with probability proportional to their
// success rate scaled by the region's configured weight, so retries drift
// toward regions that have been working.
func (m *Manager) rotateWeighted(candidates []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0.0
	weights := make([]float64, len(candidates))
	for i, id := range candidates {
		// Floor keeps zero-success regions samplable.
		w := m.metrics[id].SuccessRate() + 0.05
		if weight := m.regions[id].spec.Weight; weight > 0 {
			w *= float64(weight)
		}
		weights[i] = w
		total += w
	}

	r := m.rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}

// UpdateRegionalMetrics folds one task outcome into the region's counters
// and availability state.
func (m *Manager) UpdateRegionalMetrics(regionID string, success bool, responseTime time.Duration) {
	metrics, exists := m.metrics[regionID]
	if !exists {
		return
	}
	metrics.Record(success, responseTime)

	state := m.regions[regionID]
	state.mu.Lock()
	if success {
		state.failureCount = 0
		state.available = true
	} else {
		state.failureCount++
		state.lastFailure = time.Now()
		if state.failureCount >= m.config.FailureThreshold {
			state.available = false
		}
	}
	state.mu.Unlock()
}

// ReportRateLimited puts a region into its cool-down window after an HTTP
// 429 or equivalent signal.
func (m *Manager) ReportRateLimited(regionID string) {
	state, exists := m.regions[regionID]
	if !exists {
		return
	}
	state.mu.Lock()
	state.cooldownUntil = time.Now().Add(m.config.CooldownTime)
	state.mu.Unlock()

	m.logger.WithFields(map[string]interface{}{
		"region":   regionID,
		"cooldown": m.config.CooldownTime.String(),
	}).Warn("region rate limited, entering cool-down")
}

// MetricsSnapshot returns per-region metric snapshots.
func (m *Manager) MetricsSnapshot() map[string]Snapshot {
	out := make(map[string]Snapshot, len(m.metrics))
	for id, metrics := range m.metrics {
		out[id] = metrics.Snapshot()
	}
	return out
}

// RegionIDs returns all configured region ids in sorted order.
func (m *Manager) RegionIDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// AvailableRegions returns the ids of regions currently eligible for
// selection.
func (m *Manager) AvailableRegions() []string {
	return m.availableIDs()
}

// Load returns the number of checked-out sessions for a region.
func (m *Manager) Load(regionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkedOut[regionID]
}

// Close tears down all pooled sessions. Subsequent session requests fail
// with ErrSessionPoolClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var sessions []*Session
	for id, pool := range m.pools {
		sessions = append(sessions, pool...)
		m.pools[id] = nil
	}
	m.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
	return nil
}
