package source

// convert.go maps values returned by database drivers onto dataset values and
// dataset column types onto PostgreSQL column types.

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

// ErrTooManyRows is returned when a query yields more rows than allowed.
var ErrTooManyRows = errors.New("query returned too many rows")

// valueFromAny converts a driver value. Unknown types fall back to their
// fmt representation as text.
func valueFromAny(v any) dataset.Value {
	switch x := v.(type) {
	case nil:
		return dataset.Null()
	case string:
		return dataset.Text(x)
	case []byte:
		return dataset.Text(string(x))
	case bool:
		return dataset.Bool(x)
	case int:
		return dataset.Int(int64(x))
	case int8:
		return dataset.Int(int64(x))
	case int16:
		return dataset.Int(int64(x))
	case int32:
		return dataset.Int(int64(x))
	case int64:
		return dataset.Int(x)
	case uint8:
		return dataset.Int(int64(x))
	case uint16:
		return dataset.Int(int64(x))
	case uint32:
		return dataset.Int(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return dataset.Float(float64(x))
		}
		return dataset.Int(int64(x))
	case float32:
		return dataset.Float(float64(x))
	case float64:
		return dataset.Float(x)
	case time.Time:
		return dataset.Time(x)
	case pgtype.Numeric:
		return numericValue(x)
	case [16]byte:
		return dataset.Text(uuid.UUID(x).String())
	case fmt.Stringer:
		return dataset.Text(x.String())
	default:
		return dataset.Text(fmt.Sprint(x))
	}
}

// numericValue keeps whole NUMERIC values as integers when they fit.
func numericValue(n pgtype.Numeric) dataset.Value {
	if !n.Valid || n.NaN {
		return dataset.Null()
	}
	if n.Exp >= 0 && n.InfinityModifier == pgtype.Finite {
		if i, err := n.Int64Value(); err == nil && i.Valid {
			return dataset.Int(i.Int64)
		}
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return dataset.Null()
	}
	return dataset.Float(f.Float64)
}

// pgType returns the column type used when creating an output table.
func pgType(t dataset.ColumnType) string {
	switch t {
	case dataset.TypeInteger:
		return "BIGINT"
	case dataset.TypeFloat:
		return "DOUBLE PRECISION"
	case dataset.TypeBoolean:
		return "BOOLEAN"
	case dataset.TypeDatetime:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// collector accumulates driver rows into a dataset.
type collector struct {
	name    string
	header  []string
	rows    [][]dataset.Value
	maxRows int
}

func newCollector(name string, header []string, maxRows int) *collector {
	return &collector{name: name, header: header, maxRows: maxRows}
}

func (c *collector) add(values []any) error {
	if c.maxRows > 0 && len(c.rows) >= c.maxRows {
		return fmt.Errorf("%w: limit is %d", ErrTooManyRows, c.maxRows)
	}
	row := make([]dataset.Value, len(values))
	for i, v := range values {
		row[i] = valueFromAny(v)
	}
	c.rows = append(c.rows, row)
	return nil
}

func (c *collector) dataset() (*dataset.Dataset, error) {
	return dataset.FromRows(c.name, c.header, c.rows)
}

// tableName returns the last segment of a possibly schema-qualified name.
func tableName(table string) string {
	parts := strings.Split(table, ".")
	return parts[len(parts)-1]
}
