// internal/monitoring/monitoring_test.go
package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/valpere/AgentScrapexter/internal/region"
)

type fakeRegions struct {
	ids       []string
	available []string
	snapshots map[string]region.Snapshot
}

func (f *fakeRegions) RegionIDs() []string        { return f.ids }
func (f *fakeRegions) AvailableRegions() []string { return f.available }
func (f *fakeRegions) MetricsSnapshot() map[string]region.Snapshot {
	return f.snapshots
}

func TestHealthCheckerStatuses(t *testing.T) {
	tests := []struct {
		name    string
		regions *fakeRegions
		want    string
	}{
		{
			name:    "all regions available",
			regions: &fakeRegions{ids: []string{"a", "b"}, available: []string{"a", "b"}},
			want:    StatusHealthy,
		},
		{
			name:    "some regions cooling",
			regions: &fakeRegions{ids: []string{"a", "b"}, available: []string{"a"}},
			want:    StatusDegraded,
		},
		{
			name:    "no regions available",
			regions: &fakeRegions{ids: []string{"a", "b"}, available: nil},
			want:    StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker(tt.regions)
			report := hc.Check()
			if report.Status != tt.want {
				t.Errorf("status = %q, want %q", report.Status, tt.want)
			}
			if len(report.Checks) != 3 {
				t.Errorf("got %d checks, want 3", len(report.Checks))
			}
		})
	}
}

func TestHealthCheckerWithoutRegions(t *testing.T) {
	hc := NewHealthChecker(nil)
	report := hc.Check()
	if report.Status != StatusDegraded {
		t.Errorf("status = %q, want %q", report.Status, StatusDegraded)
	}
}

func TestHealthEndpoint(t *testing.T) {
	regions := &fakeRegions{ids: []string{"a"}, available: []string{"a"}}
	s := NewServer(":0", regions)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}

	var report HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.Status != StatusHealthy {
		t.Errorf("status = %q", report.Status)
	}
}

func TestHealthEndpointUnavailable(t *testing.T) {
	regions := &fakeRegions{ids: []string{"a"}, available: nil}
	s := NewServer(":0", regions)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	regions := &fakeRegions{
		ids:       []string{"us-east", "eu-west"},
		available: []string{"us-east"},
		snapshots: map[string]region.Snapshot{
			"us-east": {TotalRequests: 10, SuccessRequests: 9, FailedRequests: 1, AvgResponseTime: 120 * time.Millisecond, SuccessRate: 0.9},
			"eu-west": {},
		},
	}
	s := NewServer(":0", regions)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}

	var resp struct {
		Regions   map[string]region.Snapshot `json:"regions"`
		Available []string                   `json:"available_regions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Regions) != 2 {
		t.Errorf("got %d region snapshots", len(resp.Regions))
	}
	if resp.Regions["us-east"].TotalRequests != 10 {
		t.Errorf("us-east total = %d", resp.Regions["us-east"].TotalRequests)
	}
	if len(resp.Available) != 1 || resp.Available[0] != "us-east" {
		t.Errorf("available = %v", resp.Available)
	}
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.TaskStarted("link_finder")
	m.RecordTask("link_finder", "us-east", true, 250*time.Millisecond)
	m.TaskFinished("link_finder")
	m.RecordCooldown("us-east")
	m.RecordSessionCreated("us-east")
	m.RecordSessionRecycled("us-east", "expired")
	m.RecordInjection("standard", true)
	m.RecordLinks("us-east", 12)
	m.RecordOutput("json", 12)
	m.RecordOutputError("csv")
	m.RecordRateLimitWait("link_finder", 10*time.Millisecond)
}

func TestDefaultMetricsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() returned different instances")
	}
}
