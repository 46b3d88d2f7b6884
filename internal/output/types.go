// Package output writes discovered link records to configured sinks: flat
// files (JSON, CSV, Excel), SQL databases, and MongoDB.
package output

import (
	"context"
	"fmt"

	"github.com/valpere/AgentScrapexter/internal/agent"
)

// Sink writes batches of link records to one destination.
type Sink interface {
	Write(ctx context.Context, links []agent.Link) error
	Close() error
	Format() string
}

// Supported sink types.
const (
	TypeJSON    = "json"
	TypeCSV     = "csv"
	TypeExcel   = "excel"
	TypeSQL     = "sql"
	TypeMongoDB = "mongodb"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// SinkConfig describes one output destination.
type SinkConfig struct {
	Type string `yaml:"type" json:"type"`

	// File sinks.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// SQL sinks.
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Table  string `yaml:"table,omitempty" json:"table,omitempty"`

	// MongoDB sinks.
	URI        string `yaml:"uri,omitempty" json:"uri,omitempty"`
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
}

// Validate checks that the config names a known sink type with the fields
// that type requires.
func (c *SinkConfig) Validate() error {
	switch c.Type {
	case TypeJSON, TypeCSV, TypeExcel:
		if c.Path == "" {
			return fmt.Errorf("%s sink requires a path", c.Type)
		}
	case TypeSQL:
		switch c.Driver {
		case DriverSQLite, DriverMySQL, DriverPostgres:
		default:
			return fmt.Errorf("unknown sql driver %q", c.Driver)
		}
		if c.DSN == "" {
			return fmt.Errorf("sql sink requires a dsn")
		}
	case TypeMongoDB:
		if c.URI == "" || c.Database == "" {
			return fmt.Errorf("mongodb sink requires uri and database")
		}
	default:
		return fmt.Errorf("unknown sink type %q", c.Type)
	}
	return nil
}

// NewSink constructs the sink described by the config.
func NewSink(ctx context.Context, cfg SinkConfig) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeJSON:
		return NewJSONSink(cfg.Path), nil
	case TypeCSV:
		return NewCSVSink(cfg.Path), nil
	case TypeExcel:
		return NewExcelSink(cfg.Path), nil
	case TypeSQL:
		return NewSQLSink(cfg.Driver, cfg.DSN, cfg.Table)
	case TypeMongoDB:
		return NewMongoSink(ctx, cfg.URI, cfg.Database, cfg.Collection)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
