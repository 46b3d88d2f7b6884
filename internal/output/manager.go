// internal/output/manager.go
package output

import (
	"context"
	"fmt"

	"github.com/valpere/AgentScrapexter/internal/agent"
	"github.com/valpere/AgentScrapexter/internal/monitoring"
	"github.com/valpere/AgentScrapexter/internal/utils"
)

// Manager fans link batches out to every configured sink. A failing sink is
// logged and skipped; the others still receive the batch.
type Manager struct {
	sinks   []Sink
	logger  utils.Logger
	metrics *monitoring.Metrics
}

// NewManager constructs all configured sinks. Construction fails if any
// sink cannot be built, so misconfiguration surfaces at startup rather than
// after a run.
func NewManager(ctx context.Context, configs []SinkConfig) (*Manager, error) {
	m := &Manager{
		logger:  utils.NewComponentLogger("output"),
		metrics: monitoring.Default(),
	}

	for i, cfg := range configs {
		sink, err := NewSink(ctx, cfg)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("sink %d (%s): %w", i, cfg.Type, err)
		}
		m.sinks = append(m.sinks, sink)
	}
	return m, nil
}

// Write delivers the batch to every sink.
func (m *Manager) Write(ctx context.Context, links []agent.Link) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Write(ctx, links); err != nil {
			m.metrics.RecordOutputError(sink.Format())
			m.logger.WithFields(map[string]interface{}{
				"format": sink.Format(),
				"error":  err.Error(),
			}).Error("sink write failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.metrics.RecordOutput(sink.Format(), len(links))
	}
	return firstErr
}

// Close closes every sink, returning the first error.
func (m *Manager) Close() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SinkCount reports how many sinks are attached.
func (m *Manager) SinkCount() int {
	return len(m.sinks)
}
