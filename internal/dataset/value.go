package dataset

// value.go defines the nullable cell type and the coercions the cleaning
// engine relies on.
//
// Source data is messy: numbers arrive as text, booleans as yes/no, dates in
// half a dozen layouts. The Parse* helpers accept the common spellings and
// report ok=false for anything else so callers can decide whether a failed
// coercion means "missing" or "leave unchanged".

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindTime
)

// Value is a single nullable cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Null returns the missing-value marker.
func Null() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value. NaN is treated as missing.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	return Value{kind: KindFloat, f: f}
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a datetime value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Kind reports the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is missing.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumeric reports whether v holds an integer or float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Number returns the numeric value of v. ok is false for non-numeric kinds.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// BoolValue returns the boolean held by v.
func (v Value) BoolValue() (bool, bool) {
	return v.b, v.kind == KindBool
}

// TimeValue returns the time held by v.
func (v Value) TimeValue() (time.Time, bool) {
	return v.t, v.kind == KindTime
}

// Any returns the Go value held by v: nil, string, int64, float64, bool or
// time.Time. Database drivers accept all of them as query arguments.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// String returns the text form of v. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// Key returns an equality key for duplicate detection and mode counting.
// Integers and floats with the same numeric value share a key, text "1" and
// number 1 do not, and all nulls are equal to each other.
func (v Value) Key() string {
	switch v.kind {
	case KindNull:
		return "\x00"
	case KindText:
		return "s:" + v.s
	case KindInt, KindFloat:
		f, _ := v.Number()
		if f == 0 {
			f = 0 // -0
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	case KindTime:
		return "t:" + v.t.UTC().Format(time.RFC3339Nano)
	default:
		return "?"
	}
}

// Equal reports whether v and o are equal under Key semantics.
func (v Value) Equal(o Value) bool { return v.Key() == o.Key() }

// MarshalJSON renders the value as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsInf(v.f, 0) {
			return json.Marshal(formatFloat(v.f))
		}
		return []byte(strconv.FormatFloat(v.f, 'f', -1, 64)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339))
	default:
		return json.Marshal(v.s)
	}
}

// MarshalYAML renders the value for yaml.v3 encoders.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindInt:
		return v.i, nil
	case KindFloat:
		return v.f, nil
	case KindBool:
		return v.b, nil
	case KindTime:
		return v.t.Format(time.RFC3339), nil
	default:
		return v.s, nil
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// numericRegex validates that a string is a plain numeric literal.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses s as a number. Surrounding whitespace is ignored;
// anything else that is not a plain numeric literal is rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseInt parses s as a base-10 integer without surrounding whitespace.
func ParseInt(s string) (int64, bool) {
	i, err := strconv.ParseInt(s, 10, 64)
	return i, err == nil
}

// ParseBool accepts the loose spellings found in spreadsheets:
// true/false, yes/no, t/f, y/n, 1/0.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ParseTime parses a date or timestamp in any of the supported layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// CoerceNumeric converts v to a number the way a lenient numeric cast does:
// numbers pass through, numeric text is parsed, booleans become 1/0.
// ok is false when v is non-null and cannot be interpreted as a number.
func CoerceNumeric(v Value) (Value, bool) {
	switch v.kind {
	case KindNull, KindInt, KindFloat:
		return v, true
	case KindBool:
		if v.b {
			return Int(1), true
		}
		return Int(0), true
	case KindText:
		if f, ok := ParseNumber(v.s); ok {
			return Float(f), true
		}
		return Null(), false
	default:
		return Null(), false
	}
}
