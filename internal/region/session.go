// internal/region/session.go
package region

import (
	"net/http"
	"sync"
	"time"

	"github.com/valpere/AgentScrapexter/internal/browser"
)

// Session is one pooled regional execution context: a browser handle plus an
// HTTP client carrying the region's identity headers. A session belongs to
// exactly one region and is checked out to at most one task at a time.
type Session struct {
	Region     string
	ID         string
	Browser    browser.Client
	HTTPClient *http.Client

	mu             sync.Mutex
	createdAt      time.Time
	lastUsedAt     time.Time
	requestCount   int
	remainingQuota int
	active         bool
}

// RecordRequest bumps usage counters after one request through the session.
func (s *Session) RecordRequest() {
	s.mu.Lock()
	s.requestCount++
	if s.remainingQuota > 0 {
		s.remainingQuota--
	}
	s.lastUsedAt = time.Now()
	s.mu.Unlock()
}

// RequestCount returns the number of requests served by this session.
func (s *Session) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestCount
}

// RemainingQuota returns the session's unused rate-limit quota.
func (s *Session) RemainingQuota() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingQuota
}

// Active reports whether the session is still usable.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// expired reports whether the session has crossed an age or request-count
// recycling threshold.
func (s *Session) expired(maxAge time.Duration, maxRequests int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return true
	}
	if maxAge > 0 && time.Since(s.createdAt) > maxAge {
		return true
	}
	if maxRequests > 0 && s.requestCount >= maxRequests {
		return true
	}
	return false
}

// close tears down the browser handle and marks the session inactive. Safe
// to call more than once.
func (s *Session) close() {
	s.mu.Lock()
	active := s.active
	s.active = false
	s.mu.Unlock()

	if active && s.Browser != nil {
		s.Browser.Close()
	}
	if s.HTTPClient != nil {
		s.HTTPClient.CloseIdleConnections()
	}
}

// headerTransport injects region identity headers into every outgoing HTTP
// request made through a session's client.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	for k, v := range t.headers {
		if cloned.Header.Get(k) == "" {
			cloned.Header.Set(k, v)
		}
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(cloned)
}
