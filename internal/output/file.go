// internal/output/file.go
package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/valpere/AgentScrapexter/internal/agent"
)

// JSONSink accumulates link records and writes them as a JSON array on
// every batch, so the file is always valid JSON even mid-run.
type JSONSink struct {
	path string

	mu      sync.Mutex
	records []agent.Link
}

// NewJSONSink creates a JSON file sink.
func NewJSONSink(path string) *JSONSink {
	return &JSONSink{path: path}
}

// Write appends the batch and rewrites the file.
func (s *JSONSink) Write(ctx context.Context, links []agent.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, links...)

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the file is rewritten on every batch.
func (s *JSONSink) Close() error { return nil }

// Format returns the sink type name.
func (s *JSONSink) Format() string { return TypeJSON }

// CSVSink streams link records to a CSV file with a header row.
type CSVSink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink creates a CSV file sink. The file is opened lazily on first
// write.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

var csvHeader = []string{"url", "name", "source_url", "region", "discovered_at"}

// Write appends the batch as CSV rows.
func (s *CSVSink) Write(ctx context.Context, links []agent.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		file, err := os.Create(s.path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", s.path, err)
		}
		s.file = file
		s.writer = csv.NewWriter(file)
		if err := s.writer.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, link := range links {
		row := []string{
			link.URL,
			link.Name,
			link.SourceURL,
			link.Region,
			link.DiscoveredAt.Format(time.RFC3339),
		}
		if err := s.writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	s.writer.Flush()
	return s.writer.Error()
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// Format returns the sink type name.
func (s *CSVSink) Format() string { return TypeCSV }
