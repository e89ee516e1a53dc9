package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
	"github.com/JonMunkholm/datacleaner/internal/source"
)

// sourceFlags selects where a command reads its dataset from.
type sourceFlags struct {
	file   string
	sqlite string
	table  string
	query  string
	name   string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "", "CSV or gzip-compressed CSV file")
	fl.StringVar(&f.sqlite, "sqlite", "", "SQLite database file")
	fl.StringVar(&f.table, "table", "", "table to load (SQLite, or PostgreSQL via DATABASE_URL)")
	fl.StringVar(&f.query, "query", "", "SELECT to load (SQLite, or PostgreSQL via DATABASE_URL)")
	fl.StringVar(&f.name, "name", "", "dataset name for --query results (default: query)")
	cmd.MarkFlagsMutuallyExclusive("file", "sqlite")
	cmd.MarkFlagsMutuallyExclusive("table", "query")
}

var errNoSource = errors.New("no dataset provided: pass a CSV file, --file, or --table/--query")

// load reads the dataset described by f and args. It returns the dataset and
// a short description of its origin.
func (a *app) load(ctx context.Context, f sourceFlags, args []string) (*dataset.Dataset, string, error) {
	if f.file == "" && len(args) == 1 {
		f.file = args[0]
	}
	queryName := f.name
	if queryName == "" {
		queryName = "query"
	}

	switch {
	case f.file != "":
		if f.table != "" || f.query != "" {
			return nil, "", errors.New("--table and --query cannot be combined with a file")
		}
		ds, err := source.ReadFile(f.file)
		return ds, "file", err

	case f.sqlite != "":
		db, err := source.OpenSQLite(f.sqlite, a.cfg.Database.MaxRows)
		if err != nil {
			return nil, "", err
		}
		defer db.Close()

		switch {
		case f.table != "":
			ds, err := db.LoadTable(ctx, f.table)
			return ds, "sqlite", err
		case f.query != "":
			ds, err := db.Query(ctx, queryName, f.query)
			return ds, "sqlite", err
		default:
			return nil, "", errors.New("--sqlite needs --table or --query")
		}

	case f.table != "" || f.query != "":
		pool, err := source.OpenPool(ctx, a.cfg.Database)
		if err != nil {
			return nil, "", err
		}
		defer pool.Close()

		pg := source.NewPostgres(pool, a.cfg.Database)
		if f.table != "" {
			ds, err := pg.LoadTable(ctx, f.table)
			return ds, "postgres", err
		}
		ds, err := pg.Query(ctx, queryName, f.query)
		return ds, "postgres", err

	default:
		return nil, "", errNoSource
	}
}

// writeTable stores ds in PostgreSQL.
func (a *app) writeTable(ctx context.Context, table string, ds *dataset.Dataset, replace bool) (int64, error) {
	pool, err := source.OpenPool(ctx, a.cfg.Database)
	if err != nil {
		return 0, fmt.Errorf("write table %s: %w", table, err)
	}
	defer pool.Close()
	return source.NewPostgres(pool, a.cfg.Database).WriteTable(ctx, table, ds, replace)
}
