package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptyCSV is returned when the input has no header row.
var ErrEmptyCSV = errors.New("csv has no header row")

// ReadCSV parses a CSV document into a Dataset.
//
// Only empty cells are read as null. Tokens such as "NULL" or "nan" stay as
// text; recognizing them is the cleaning engine's job. Each column is typed
// from its non-empty cells: all integers gives an integer column, all numbers
// a float column, all true/false a boolean column, anything else text with
// the raw cell contents preserved.
func ReadCSV(r io.Reader, name string) (*Dataset, error) {
	cr := csv.NewReader(NewSanitizingReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: read header: %w", err)
	}
	header = uniqueHeader(header)

	raw := make([][]string, len(header))
	present := make([][]bool, len(header))
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("invalid csv: line %d: %w", line, err)
		}
		if len(record) > len(header) {
			return nil, fmt.Errorf("invalid csv: line %d has %d fields, header has %d", line, len(record), len(header))
		}
		for j := range header {
			if j < len(record) {
				raw[j] = append(raw[j], record[j])
				present[j] = append(present[j], record[j] != "")
			} else {
				raw[j] = append(raw[j], "")
				present[j] = append(present[j], false)
			}
		}
	}

	d := New(name)
	for j, h := range header {
		col := typedColumn(h, raw[j], present[j])
		if err := d.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// uniqueHeader trims header names and suffixes repeats with ".1", ".2".
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			out[i] = h + "." + strconv.Itoa(n+1)
			continue
		}
		seen[h] = 0
		out[i] = h
	}
	return out
}

func typedColumn(name string, cells []string, present []bool) *Column {
	allInt, allNum, allBool, nonEmpty := true, true, true, false
	for i, s := range cells {
		if !present[i] {
			continue
		}
		nonEmpty = true
		t := strings.TrimSpace(s)
		if allInt {
			if _, ok := ParseInt(t); !ok {
				allInt = false
			}
		}
		if allNum {
			if _, ok := ParseNumber(t); !ok {
				allNum = false
			}
		}
		if allBool {
			lt := strings.ToLower(t)
			if lt != "true" && lt != "false" {
				allBool = false
			}
		}
		if !allInt && !allNum && !allBool {
			break
		}
	}

	values := make([]Value, len(cells))
	typ := TypeText
	switch {
	case !nonEmpty:
		typ = TypeText
	case allInt:
		typ = TypeInteger
	case allNum:
		typ = TypeFloat
	case allBool:
		typ = TypeBoolean
	}

	for i, s := range cells {
		if !present[i] {
			continue
		}
		t := strings.TrimSpace(s)
		switch typ {
		case TypeInteger:
			n, _ := ParseInt(t)
			values[i] = Int(n)
		case TypeFloat:
			f, _ := ParseNumber(t)
			values[i] = Float(f)
		case TypeBoolean:
			values[i] = Bool(strings.EqualFold(t, "true"))
		default:
			values[i] = Text(s)
		}
	}
	return &Column{Name: name, Type: typ, Values: values}
}

// WriteCSV writes d as CSV with a header row. Nulls are written as empty cells.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, d.NumColumns())
	for i := 0; i < d.Rows(); i++ {
		for j, c := range d.columns {
			record[j] = c.Values[i].String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
