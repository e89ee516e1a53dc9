package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

// SQLite reads datasets from a SQLite database file.
type SQLite struct {
	db      *sql.DB
	maxRows int
}

// OpenSQLite opens the database at path read-only. maxRows of zero means no
// limit.
func OpenSQLite(path string, maxRows int) (*SQLite, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLite{db: db, maxRows: maxRows}, nil
}

// NewSQLite wraps an already open handle.
func NewSQLite(db *sql.DB, maxRows int) *SQLite {
	return &SQLite{db: db, maxRows: maxRows}
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Query runs a SELECT and returns its rows as a dataset named name.
func (s *SQLite) Query(ctx context.Context, name, query string, args ...any) (*dataset.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}

	c := newCollector(name, header, s.maxRows)
	values := make([]any, len(header))
	dest := make([]any, len(header))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		if err := c.add(values); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return c.dataset()
}

// LoadTable reads a whole table.
func (s *SQLite) LoadTable(ctx context.Context, table string) (*dataset.Dataset, error) {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	return s.Query(ctx, table, "SELECT * FROM "+quoted)
}
