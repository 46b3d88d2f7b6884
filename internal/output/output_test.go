// internal/output/output_test.go
package output

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valpere/AgentScrapexter/internal/agent"
)

func sampleLinks() []agent.Link {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []agent.Link{
		{URL: "https://example.com/events/1", Name: "Opening Gala", SourceURL: "https://example.com/events", Region: "us-east", DiscoveredAt: now},
		{URL: "https://example.com/events/2", Name: "Workshop A", SourceURL: "https://example.com/events", Region: "eu-west", DiscoveredAt: now},
	}
}

func TestSinkConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SinkConfig
		wantErr bool
	}{
		{"json with path", SinkConfig{Type: TypeJSON, Path: "out.json"}, false},
		{"json without path", SinkConfig{Type: TypeJSON}, true},
		{"csv with path", SinkConfig{Type: TypeCSV, Path: "out.csv"}, false},
		{"excel with path", SinkConfig{Type: TypeExcel, Path: "out.xlsx"}, false},
		{"sqlite", SinkConfig{Type: TypeSQL, Driver: DriverSQLite, DSN: "links.db"}, false},
		{"postgres", SinkConfig{Type: TypeSQL, Driver: DriverPostgres, DSN: "postgres://localhost/x"}, false},
		{"sql bad driver", SinkConfig{Type: TypeSQL, Driver: "oracle", DSN: "x"}, true},
		{"sql no dsn", SinkConfig{Type: TypeSQL, Driver: DriverMySQL}, true},
		{"mongodb", SinkConfig{Type: TypeMongoDB, URI: "mongodb://localhost", Database: "links"}, false},
		{"mongodb no database", SinkConfig{Type: TypeMongoDB, URI: "mongodb://localhost"}, true},
		{"unknown type", SinkConfig{Type: "ftp", Path: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSONSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	sink := NewJSONSink(path)

	links := sampleLinks()
	if err := sink.Write(context.Background(), links[:1]); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := sink.Write(context.Background(), links[1:]); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var got []agent.Link
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d records, want 2", len(got))
	}
	if got[0].Name != "Opening Gala" {
		t.Errorf("first record name = %q", got[0].Name)
	}
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.csv")
	sink := NewCSVSink(path)

	if err := sink.Write(context.Background(), sampleLinks()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "url,name") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "Workshop A") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestSQLiteSink(t *testing.T) {
	sink, err := NewSQLSink(DriverSQLite, ":memory:", "links")
	if err != nil {
		t.Fatalf("NewSQLSink failed: %v", err)
	}
	defer sink.Close()

	if err := sink.Write(context.Background(), sampleLinks()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var count int
	if err := sink.db.QueryRow("SELECT COUNT(*) FROM links").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}

	var name string
	err = sink.db.QueryRow("SELECT name FROM links WHERE url = ?", "https://example.com/events/2").Scan(&name)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if name != "Workshop A" {
		t.Errorf("name = %q", name)
	}
}

func TestSQLSinkRejectsBadTableName(t *testing.T) {
	if _, err := NewSQLSink(DriverSQLite, ":memory:", "links; DROP TABLE x"); err == nil {
		t.Fatal("expected error for unsafe table name")
	}
}

func TestManagerFansOut(t *testing.T) {
	dir := t.TempDir()
	configs := []SinkConfig{
		{Type: TypeJSON, Path: filepath.Join(dir, "links.json")},
		{Type: TypeCSV, Path: filepath.Join(dir, "links.csv")},
	}

	m, err := NewManager(context.Background(), configs)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.SinkCount() != 2 {
		t.Fatalf("sink count = %d", m.SinkCount())
	}

	if err := m.Write(context.Background(), sampleLinks()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	for _, name := range []string{"links.json", "links.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}

func TestManagerRejectsBadConfig(t *testing.T) {
	_, err := NewManager(context.Background(), []SinkConfig{{Type: "ftp"}})
	if err == nil {
		t.Fatal("expected error for unknown sink type")
	}
}
