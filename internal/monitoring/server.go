// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/AgentScrapexter/internal/region"
	"github.com/valpere/AgentScrapexter/internal/utils"
)

// StatusProvider is the subset of the region manager the status endpoint
// reports on.
type StatusProvider interface {
	RegionChecker
	MetricsSnapshot() map[string]region.Snapshot
}

// Server serves the health, status, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	health     *HealthChecker
	regions    StatusProvider
	logger     utils.Logger
}

// NewServer builds the monitoring HTTP server on the given address.
func NewServer(addr string, regions StatusProvider) *Server {
	s := &Server{
		health:  NewHealthChecker(regions),
		regions: regions,
		logger:  utils.NewComponentLogger("monitoring"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.WithField("addr", s.httpServer.Addr).Info("monitoring server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check()

	code := http.StatusOK
	if report.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

// statusResponse is the /status payload.
type statusResponse struct {
	Regions   map[string]region.Snapshot `json:"regions"`
	Available []string                   `json:"available_regions"`
	Timestamp time.Time                  `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Timestamp: time.Now()}
	if s.regions != nil {
		resp.Regions = s.regions.MetricsSnapshot()
		resp.Available = s.regions.AvailableRegions()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
