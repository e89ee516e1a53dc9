// Package dataset provides the in-memory tabular model used by the cleaning
// pipeline: an ordered set of named columns sharing one row count, where every
// cell is a nullable Value.
//
// A Dataset is not safe for concurrent mutation. Callers that need an
// immutable view take a Clone.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrLengthMismatch  = errors.New("column length mismatch")
)

// ColumnType is the declared or inferred semantic type of a column.
type ColumnType uint8

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeFloat
	TypeBoolean
	TypeDatetime
)

// String returns the dtype label used in profiles and reports.
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeDatetime:
		return "datetime"
	default:
		return "text"
	}
}

// IsNumeric reports whether t is integer or float.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseColumnType accepts the type names users tend to type.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "str", "object", "category":
		return TypeText, nil
	case "integer", "int", "int32", "int64":
		return TypeInteger, nil
	case "float", "float64", "double", "numeric", "number":
		return TypeFloat, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "datetime", "date", "timestamp", "datetime64":
		return TypeDatetime, nil
	default:
		return TypeText, fmt.Errorf("unknown column type %q", s)
	}
}

// InferType derives a column type from its values. Nulls are ignored; an
// all-null column is text.
func InferType(values []Value) ColumnType {
	var ints, floats, bools, times, texts int
	for _, v := range values {
		switch v.Kind() {
		case KindInt:
			ints++
		case KindFloat:
			floats++
		case KindBool:
			bools++
		case KindTime:
			times++
		case KindText:
			texts++
		}
	}

	switch {
	case texts > 0:
		return TypeText
	case ints > 0 && floats == 0 && bools == 0 && times == 0:
		return TypeInteger
	case ints+floats > 0 && bools == 0 && times == 0:
		return TypeFloat
	case bools > 0 && ints+floats == 0 && times == 0:
		return TypeBoolean
	case times > 0 && ints+floats+bools == 0:
		return TypeDatetime
	case ints+floats+bools+times > 0:
		return TypeText
	default:
		return TypeText
	}
}

// Column is a named, typed sequence of values aligned to dataset rows.
type Column struct {
	Name   string
	Type   ColumnType
	Values []Value
}

// NewColumn builds a column and infers its type from values.
func NewColumn(name string, values []Value) *Column {
	return &Column{Name: name, Type: InferType(values), Values: values}
}

// Len returns the number of values in the column.
func (c *Column) Len() int { return len(c.Values) }

// NullCount returns the number of missing values.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Type: c.Type, Values: values}
}

// Shape is a (rows, columns) pair.
type Shape struct {
	Rows    int `json:"rows" yaml:"rows"`
	Columns int `json:"columns" yaml:"columns"`
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Columns)
}

// Dataset is an ordered collection of equally long columns.
type Dataset struct {
	Name    string
	columns []*Column
	index   map[string]int
	rows    int
}

// New returns an empty dataset.
func New(name string) *Dataset {
	return &Dataset{Name: name, index: make(map[string]int)}
}

// FromColumns builds a dataset from columns that must share one length and
// have distinct names.
func FromColumns(name string, cols ...*Column) (*Dataset, error) {
	d := New(name)
	for _, c := range cols {
		if err := d.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// FromRows builds a dataset from a header and row-major values. Short rows
// are padded with nulls; long rows are an error.
func FromRows(name string, header []string, rows [][]Value) (*Dataset, error) {
	values := make([][]Value, len(header))
	for j := range header {
		values[j] = make([]Value, len(rows))
	}
	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: row %d has %d values, header has %d", ErrLengthMismatch, i+1, len(row), len(header))
		}
		for j := range row {
			values[j][i] = row[j]
		}
	}

	d := New(name)
	d.rows = len(rows)
	for j, h := range header {
		if err := d.AddColumn(NewColumn(h, values[j])); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Shape returns (rows, columns).
func (d *Dataset) Shape() Shape {
	return Shape{Rows: d.rows, Columns: len(d.columns)}
}

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// ColumnNames returns column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// MustColumn is Column returning ErrColumnNotFound instead of a bool.
func (d *Dataset) MustColumn(name string) (*Column, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return c, nil
}

// AddColumn appends a column. The first column fixes the row count.
func (d *Dataset) AddColumn(c *Column) error {
	if _, exists := d.index[c.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
	}
	if len(d.columns) == 0 && d.rows == 0 {
		d.rows = c.Len()
	} else if c.Len() != d.rows {
		return fmt.Errorf("%w: %q has %d values, dataset has %d rows", ErrLengthMismatch, c.Name, c.Len(), d.rows)
	}
	d.index[c.Name] = len(d.columns)
	d.columns = append(d.columns, c)
	return nil
}

// RenameColumn renames a column in place.
func (d *Dataset) RenameColumn(from, to string) error {
	i, ok := d.index[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, from)
	}
	if from == to {
		return nil
	}
	if _, exists := d.index[to]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, to)
	}
	delete(d.index, from)
	d.index[to] = i
	d.columns[i].Name = to
	return nil
}

// DropColumn removes a column.
func (d *Dataset) DropColumn(name string) error {
	i, ok := d.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	d.columns = append(d.columns[:i], d.columns[i+1:]...)
	d.reindex()
	return nil
}

func (d *Dataset) reindex() {
	d.index = make(map[string]int, len(d.columns))
	for i, c := range d.columns {
		d.index[c.Name] = i
	}
}

// KeepRows retains the rows whose mask entry is true and returns how many
// rows were removed. The mask must have one entry per row.
func (d *Dataset) KeepRows(mask []bool) (int, error) {
	if len(mask) != d.rows {
		return 0, fmt.Errorf("%w: mask has %d entries, dataset has %d rows", ErrLengthMismatch, len(mask), d.rows)
	}
	kept := 0
	for _, keep := range mask {
		if keep {
			kept++
		}
	}
	if kept == d.rows {
		return 0, nil
	}
	for _, c := range d.columns {
		values := make([]Value, 0, kept)
		for i, keep := range mask {
			if keep {
				values = append(values, c.Values[i])
			}
		}
		c.Values = values
	}
	removed := d.rows - kept
	d.rows = kept
	return removed, nil
}

// Row returns the values of row i in column order.
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Values[i]
	}
	return row
}

// RowKey returns an equality key for row i over cols. Each cell key is
// length-prefixed, so cell contents cannot run into their neighbours.
func RowKey(cols []*Column, i int) string {
	var b strings.Builder
	for _, c := range cols {
		k := c.Values[i].Key()
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}

// DuplicateMask marks each row that equals an earlier row over cols.
// All columns are used when cols is empty.
func (d *Dataset) DuplicateMask(cols []*Column) []bool {
	if len(cols) == 0 {
		cols = d.columns
	}
	seen := make(map[string]struct{}, d.rows)
	dup := make([]bool, d.rows)
	for i := 0; i < d.rows; i++ {
		key := RowKey(cols, i)
		if _, ok := seen[key]; ok {
			dup[i] = true
			continue
		}
		seen[key] = struct{}{}
	}
	return dup
}

// DuplicateCount returns the number of rows fully equal to an earlier row.
func (d *Dataset) DuplicateCount() int {
	n := 0
	for _, dup := range d.DuplicateMask(nil) {
		if dup {
			n++
		}
	}
	return n
}

// NullCount returns the total number of missing cells.
func (d *Dataset) NullCount() int {
	n := 0
	for _, c := range d.columns {
		n += c.NullCount()
	}
	return n
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Name:    d.Name,
		columns: make([]*Column, len(d.columns)),
		rows:    d.rows,
	}
	for i, c := range d.columns {
		out.columns[i] = c.Clone()
	}
	out.reindex()
	return out
}

// Table is the serialized form of a dataset: a header plus row-major values.
type Table struct {
	Name    string    `json:"name,omitempty" yaml:"name,omitempty"`
	Columns []string  `json:"columns" yaml:"columns"`
	Types   []string  `json:"types" yaml:"types"`
	Rows    [][]Value `json:"rows" yaml:"rows"`
}

// Table converts the dataset to its serialized form. limit caps the number
// of rows; zero or negative means all rows.
func (d *Dataset) Table(limit int) Table {
	n := d.rows
	if limit > 0 && limit < n {
		n = limit
	}
	t := Table{
		Name:    d.Name,
		Columns: d.ColumnNames(),
		Types:   make([]string, len(d.columns)),
		Rows:    make([][]Value, n),
	}
	for j, c := range d.columns {
		t.Types[j] = c.Type.String()
	}
	for i := 0; i < n; i++ {
		t.Rows[i] = d.Row(i)
	}
	return t
}
