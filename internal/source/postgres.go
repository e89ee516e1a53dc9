package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/dataset"
	"github.com/JonMunkholm/datacleaner/internal/logging"
)

// ErrNoDatabase is returned when a database source is used without a pool.
var ErrNoDatabase = errors.New("database not configured")

// OpenPool connects to PostgreSQL with the pool limits from cfg and verifies
// the connection.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if !cfg.Enabled() {
		return nil, ErrNoDatabase
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres loads query results and tables into datasets and writes cleaned
// datasets back as tables.
type Postgres struct {
	pool    *pgxpool.Pool
	maxRows int
	timeout time.Duration
}

// NewPostgres wraps pool. A nil pool yields a source whose every call
// returns ErrNoDatabase.
func NewPostgres(pool *pgxpool.Pool, cfg config.DatabaseConfig) *Postgres {
	return &Postgres{pool: pool, maxRows: cfg.MaxRows, timeout: cfg.QueryTimeout}
}

// Enabled reports whether a pool is attached.
func (p *Postgres) Enabled() bool { return p != nil && p.pool != nil }

// Query runs a SELECT and returns its rows as a dataset named name.
func (p *Postgres) Query(ctx context.Context, name, query string, args ...any) (*dataset.Dataset, error) {
	if !p.Enabled() {
		return nil, ErrNoDatabase
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}

	c := newCollector(name, header, p.maxRows)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		if err := c.add(values); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}

	logging.FromContext(ctx).Debug("loaded dataset from postgres",
		slog.String("dataset", name),
		slog.Int("rows", len(c.rows)),
		slog.Duration("duration", time.Since(start)),
	)
	return c.dataset()
}

// LoadTable reads a whole table. table may be schema-qualified.
func (p *Postgres) LoadTable(ctx context.Context, table string) (*dataset.Dataset, error) {
	ident := pgx.Identifier(strings.Split(table, "."))
	return p.Query(ctx, tableName(table), "SELECT * FROM "+ident.Sanitize())
}

// WriteTable stores ds in table using COPY. With replace set an existing
// table is dropped first; otherwise rows are appended to a table created if
// missing. It returns the number of rows copied.
func (p *Postgres) WriteTable(ctx context.Context, table string, ds *dataset.Dataset, replace bool) (int64, error) {
	if !p.Enabled() {
		return 0, ErrNoDatabase
	}
	ident := pgx.Identifier(strings.Split(table, "."))

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if replace {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
			return 0, fmt.Errorf("drop %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, createTableSQL(ident, ds)); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}

	cols := ds.Columns()
	n, err := tx.CopyFrom(ctx, ident, ds.ColumnNames(), pgx.CopyFromSlice(ds.Rows(), func(i int) ([]any, error) {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = c.Values[i].Any()
		}
		return row, nil
	}))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func createTableSQL(ident pgx.Identifier, ds *dataset.Dataset) string {
	defs := make([]string, 0, ds.NumColumns())
	for _, c := range ds.Columns() {
		defs = append(defs, pgx.Identifier{c.Name}.Sanitize()+" "+pgType(c.Type))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Sanitize(), strings.Join(defs, ", "))
}
