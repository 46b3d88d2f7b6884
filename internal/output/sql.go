// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// SQL drivers registered for the sink's supported databases.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/valpere/AgentScrapexter/internal/agent"
)

const defaultLinkTable = "links"

// SQLSink writes link records into a relational table, creating it on
// first use.
type SQLSink struct {
	db     *sql.DB
	driver string
	table  string
}

// NewSQLSink opens a database connection for the given driver and ensures
// the target table exists.
func NewSQLSink(driver, dsn, table string) (*SQLSink, error) {
	if table == "" {
		table = defaultLinkTable
	}
	if !validTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	s := &SQLSink{db: db, driver: driver, table: table}
	if err := s.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func validTableName(name string) bool {
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return len(name) > 0
}

func (s *SQLSink) ensureTable() error {
	timestampType := "TIMESTAMP"
	if s.driver == DriverSQLite {
		timestampType = "DATETIME"
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		url TEXT NOT NULL,
		name TEXT,
		source_url TEXT,
		region TEXT,
		discovered_at %s
	)`, s.table, timestampType)

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// placeholders renders the driver-appropriate parameter markers.
func (s *SQLSink) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if s.driver == DriverPostgres {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

// Write inserts the batch inside one transaction.
func (s *SQLSink) Write(ctx context.Context, links []agent.Link) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (url, name, source_url, region, discovered_at) VALUES (%s)",
		s.table, s.placeholders(5),
	)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, link := range links {
		if _, err := stmt.ExecContext(ctx,
			link.URL, link.Name, link.SourceURL, link.Region, link.DiscoveredAt,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert link %s: %w", link.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLSink) Close() error {
	return s.db.Close()
}

// Format returns the sink type name.
func (s *SQLSink) Format() string { return TypeSQL }
