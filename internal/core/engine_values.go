package core

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

// TrimWhitespace converts every value of the given text columns to its text
// form and strips surrounding whitespace. No columns means all text columns;
// non-text columns named explicitly are left alone and reported.
func (e *Engine) TrimWhitespace(columns ...string) *Engine {
	return e.apply(OpTrimWhitespace, columns, nil, func() (outcome, error) {
		targets, skipped, err := e.textTargets(columns)
		if err != nil {
			return outcome{}, err
		}

		changed := 0
		for _, c := range targets {
			values := make([]dataset.Value, len(c.Values))
			for i, v := range c.Values {
				if v.IsNull() {
					continue
				}
				values[i] = dataset.Text(strings.TrimSpace(v.String()))
			}
			changed += replaceValues(c, values)
		}
		msg := fmt.Sprintf("trimmed %d text columns", len(targets))
		if len(skipped) > 0 {
			msg += "; not text: " + strings.Join(skipped, ", ")
		}
		return outcome{affected: changed, message: msg}, nil
	})
}

// textTargets resolves names to text columns. Unknown names are an error.
func (e *Engine) textTargets(names []string) ([]*dataset.Column, []string, error) {
	if len(names) == 0 {
		names = e.textColumns()
	}
	var out []*dataset.Column
	var skipped []string
	for _, name := range names {
		c, err := e.column(name)
		if err != nil {
			return nil, nil, err
		}
		if c.Type != dataset.TypeText {
			skipped = append(skipped, name)
			continue
		}
		out = append(out, c)
	}
	return out, skipped, nil
}

// isNullToken reports whether s is one of the literal spellings of a missing
// value: none, null or nan in any case, the empty string, or a single space.
func isNullToken(s string) bool {
	switch s {
	case "", " ":
		return true
	}
	return strings.EqualFold(s, "none") || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan")
}

// NormalizeNullTokens replaces null tokens with real nulls in every column.
func (e *Engine) NormalizeNullTokens() *Engine {
	return e.apply(OpNormalizeNulls, nil, nil, func() (outcome, error) {
		replaced := 0
		for _, c := range e.ds.Columns() {
			for i, v := range c.Values {
				if v.Kind() == dataset.KindText && isNullToken(v.String()) {
					c.Values[i] = dataset.Null()
					replaced++
				}
			}
		}
		return outcome{affected: replaced, message: fmt.Sprintf("replaced %d null tokens", replaced)}, nil
	})
}

// Impute fills the nulls of column using strategy. Median and mean need a
// numeric column; mode, forward and backward work on any column.
func (e *Engine) Impute(column string, strategy ImputeStrategy) *Engine {
	params := map[string]any{"strategy": string(strategy)}
	return e.apply(OpImpute, []string{column}, params, func() (outcome, error) {
		c, err := e.column(column)
		if err != nil {
			return outcome{}, err
		}
		return imputeColumn(c, strategy)
	})
}

func imputeColumn(c *dataset.Column, strategy ImputeStrategy) (outcome, error) {
	nulls := c.NullCount()
	if nulls == 0 {
		return outcome{message: "no missing values"}, nil
	}

	switch strategy {
	case ImputeMedian, ImputeMean:
		if !c.Type.IsNumeric() {
			return outcome{}, fmt.Errorf("%w: %s imputation needs a numeric column, %q is %s", ErrIncompatibleType, strategy, c.Name, c.Type)
		}
		x := numbers(c.Values)
		if len(x) == 0 {
			return outcome{message: "no values to derive a fill from"}, nil
		}
		f := median(x)
		if strategy == ImputeMean {
			f = mean(x)
		}
		fill := numberValue(f, c.Type == dataset.TypeInteger)
		if fill.Kind() == dataset.KindFloat {
			c.Type = dataset.TypeFloat
		}
		n := fillNulls(c, fill)
		return outcome{affected: n, message: fmt.Sprintf("filled %d with %s=%s", n, strategy, fill)}, nil

	case ImputeMode:
		fill, ok := mode(c.Values)
		if !ok {
			return outcome{message: "no values to derive a fill from"}, nil
		}
		n := fillNulls(c, fill)
		return outcome{affected: n, message: fmt.Sprintf("filled %d with mode=%s", n, fill)}, nil

	case ImputeForward:
		n := 0
		last := dataset.Null()
		for i, v := range c.Values {
			if v.IsNull() {
				if !last.IsNull() {
					c.Values[i] = last
					n++
				}
				continue
			}
			last = v
		}
		return outcome{affected: n, message: fmt.Sprintf("forward-filled %d", n)}, nil

	case ImputeBackward:
		n := 0
		next := dataset.Null()
		for i := len(c.Values) - 1; i >= 0; i-- {
			v := c.Values[i]
			if v.IsNull() {
				if !next.IsNull() {
					c.Values[i] = next
					n++
				}
				continue
			}
			next = v
		}
		return outcome{affected: n, message: fmt.Sprintf("backward-filled %d", n)}, nil

	default:
		return outcome{}, fmt.Errorf("%w: impute %q", ErrUnknownStrategy, strategy)
	}
}

func fillNulls(c *dataset.Column, fill dataset.Value) int {
	n := 0
	for i, v := range c.Values {
		if v.IsNull() {
			c.Values[i] = fill
			n++
		}
	}
	return n
}

// FillValue replaces the nulls of column with v.
func (e *Engine) FillValue(column string, v dataset.Value) *Engine {
	params := map[string]any{"value": v.String()}
	return e.apply(OpFillValue, []string{column}, params, func() (outcome, error) {
		c, err := e.column(column)
		if err != nil {
			return outcome{}, err
		}
		n := fillNulls(c, v)
		if n > 0 {
			c.Type = dataset.InferType(c.Values)
		}
		return outcome{affected: n, message: fmt.Sprintf("filled %d with %s", n, v)}, nil
	})
}

// Clip bounds the numeric values of column. A nil bound is open. Nulls pass
// through.
func (e *Engine) Clip(column string, lower, upper *float64) *Engine {
	params := map[string]any{}
	if lower != nil {
		params["lower"] = *lower
	}
	if upper != nil {
		params["upper"] = *upper
	}
	return e.apply(OpClip, []string{column}, params, func() (outcome, error) {
		if lower != nil && upper != nil && *lower > *upper {
			return outcome{}, fmt.Errorf("%w: lower %v > upper %v", ErrInvalidBounds, *lower, *upper)
		}
		c, err := e.column(column)
		if err != nil {
			return outcome{}, err
		}
		if !c.Type.IsNumeric() {
			return outcome{}, fmt.Errorf("%w: cannot clip %s column %q", ErrIncompatibleType, c.Type, column)
		}
		n := clipValues(c, lower, upper)
		return outcome{affected: n, message: fmt.Sprintf("clipped %d values", n)}, nil
	})
}

func clipValues(c *dataset.Column, lower, upper *float64) int {
	n := 0
	for i, v := range c.Values {
		f, ok := v.Number()
		if !ok {
			continue
		}
		var bound float64
		switch {
		case lower != nil && f < *lower:
			bound = *lower
		case upper != nil && f > *upper:
			bound = *upper
		default:
			continue
		}
		nv := numberValue(bound, v.Kind() == dataset.KindInt)
		if nv.Kind() == dataset.KindFloat && c.Type == dataset.TypeInteger {
			c.Type = dataset.TypeFloat
		}
		c.Values[i] = nv
		n++
	}
	return n
}

// Cast converts column to target. If any non-null value cannot be converted
// the column is left exactly as it was. Casting to integer truncates toward
// zero.
func (e *Engine) Cast(column string, target dataset.ColumnType) *Engine {
	params := map[string]any{"type": target.String()}
	return e.apply(OpCast, []string{column}, params, func() (outcome, error) {
		c, err := e.column(column)
		if err != nil {
			return outcome{}, err
		}
		values := make([]dataset.Value, len(c.Values))
		for i, v := range c.Values {
			nv, ok := castValue(v, target)
			if !ok {
				return outcome{}, fmt.Errorf("%w: %q row %d value %q is not %s", ErrIncompatibleType, column, i+1, v.String(), target)
			}
			values[i] = nv
		}
		n := replaceValues(c, values)
		c.Type = target
		return outcome{affected: n, message: fmt.Sprintf("cast to %s", target)}, nil
	})
}

func castValue(v dataset.Value, target dataset.ColumnType) (dataset.Value, bool) {
	if v.IsNull() {
		return v, true
	}
	switch target {
	case dataset.TypeText:
		return dataset.Text(v.String()), true
	case dataset.TypeInteger:
		n, ok := dataset.CoerceNumeric(v)
		if !ok {
			return v, false
		}
		f, _ := n.Number()
		if !fitsInt64(f) {
			return v, false
		}
		return dataset.Int(int64(f)), true
	case dataset.TypeFloat:
		n, ok := dataset.CoerceNumeric(v)
		if !ok {
			return v, false
		}
		f, _ := n.Number()
		return dataset.Float(f), true
	case dataset.TypeBoolean:
		if _, ok := v.BoolValue(); ok {
			return v, true
		}
		if f, ok := v.Number(); ok {
			switch f {
			case 0:
				return dataset.Bool(false), true
			case 1:
				return dataset.Bool(true), true
			}
			return v, false
		}
		b, ok := dataset.ParseBool(v.String())
		if !ok {
			return v, false
		}
		return dataset.Bool(b), true
	case dataset.TypeDatetime:
		if _, ok := v.TimeValue(); ok {
			return v, true
		}
		if v.Kind() != dataset.KindText {
			return v, false
		}
		t, ok := dataset.ParseTime(v.String())
		if !ok {
			return v, false
		}
		return dataset.Time(t), true
	default:
		return v, false
	}
}

// MapValues replaces values whose text form exactly matches a key of mapping.
func (e *Engine) MapValues(column string, mapping map[string]string) *Engine {
	params := map[string]any{"mapping": mapping}
	return e.apply(OpMapValues, []string{column}, params, func() (outcome, error) {
		c, err := e.column(column)
		if err != nil {
			return outcome{}, err
		}
		n := 0
		for i, v := range c.Values {
			if v.IsNull() {
				continue
			}
			if to, ok := mapping[v.String()]; ok {
				c.Values[i] = dataset.Text(to)
				n++
			}
		}
		if n > 0 {
			c.Type = dataset.InferType(c.Values)
		}
		return outcome{affected: n, message: fmt.Sprintf("mapped %d values", n)}, nil
	})
}

// StandardizeCase rewrites text columns in the given case. No columns means
// all text columns.
func (e *Engine) StandardizeCase(columns []string, mode CaseMode) *Engine {
	params := map[string]any{"case": string(mode)}
	return e.apply(OpStandardizeCase, columns, params, func() (outcome, error) {
		conv, err := caseFunc(mode)
		if err != nil {
			return outcome{}, err
		}
		targets, skipped, err := e.textTargets(columns)
		if err != nil {
			return outcome{}, err
		}
		changed := 0
		for _, c := range targets {
			for i, v := range c.Values {
				if v.Kind() != dataset.KindText {
					continue
				}
				s := v.String()
				if out := conv(s); out != s {
					c.Values[i] = dataset.Text(out)
					changed++
				}
			}
		}
		msg := fmt.Sprintf("%s-cased %d text columns", mode, len(targets))
		if len(skipped) > 0 {
			msg += "; not text: " + strings.Join(skipped, ", ")
		}
		return outcome{affected: changed, message: msg}, nil
	})
}

func caseFunc(mode CaseMode) (func(string) string, error) {
	switch mode {
	case CaseLower:
		return strings.ToLower, nil
	case CaseUpper:
		return strings.ToUpper, nil
	case CaseTitle:
		return titleCase, nil
	case CaseCapitalize:
		return capitalize, nil
	default:
		return nil, fmt.Errorf("%w: case %q", ErrUnknownStrategy, mode)
	}
}

// titleCase upper-cases the first letter of each word and lowers the rest.
// A Caser carries state, so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// capitalize upper-cases the first letter and lowers everything else.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// fitsInt64 reports whether f truncates to an int64 without overflow.
func fitsInt64(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<63
}
