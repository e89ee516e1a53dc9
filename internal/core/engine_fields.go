package core

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

// ResolveAliases binds canonical fields to columns of the working copy.
// The bindings replace any earlier ones.
func (e *Engine) ResolveAliases(table AliasTable) *Engine {
	return e.apply(OpResolveAliases, nil, nil, func() (outcome, error) {
		e.bindings = table.Resolve(e.ds.ColumnNames())
		return outcome{
			affected: len(e.bindings),
			message:  fmt.Sprintf("bound %d of %d fields", len(e.bindings), len(table)),
		}, nil
	})
}

// NormalizeField repairs the column bound to field according to its rule.
func (e *Engine) NormalizeField(field CanonicalField) *Engine {
	name, bound := e.bindings.Column(field)
	var cols []string
	if bound {
		cols = []string{name}
	}
	rule, hasRule := e.rules[field]
	params := map[string]any{"field": string(field)}
	if hasRule {
		params["policy"] = rule.Policy.String()
	}

	return e.apply(OpNormalizeField, cols, params, func() (outcome, error) {
		if !bound {
			return outcome{}, fmt.Errorf("%w: %s", ErrFieldNotBound, field)
		}
		if !hasRule {
			return outcome{}, fmt.Errorf("%w: no rule for field %s", ErrUnknownStrategy, field)
		}
		c, err := e.column(name)
		if err != nil {
			return outcome{}, err
		}

		switch rule.Policy {
		case PolicyWordNumber:
			return normalizeNumeric(c, rule, rule.Words, false), nil
		case PolicyBounded:
			return normalizeNumeric(c, rule, nil, true), nil
		case PolicyCategorical:
			return normalizeCategorical(c, rule), nil
		default:
			return outcome{}, fmt.Errorf("%w: policy %d", ErrUnknownStrategy, rule.Policy)
		}
	})
}

// normalizeNumeric coerces c to numbers (mapping number words first), clips
// when bounded, fills nulls with the median and optionally truncates to
// integers.
func normalizeNumeric(c *dataset.Column, rule FieldRule, words map[string]int64, bounded bool) outcome {
	values := make([]dataset.Value, len(c.Values))
	unparsed := 0
	for i, v := range c.Values {
		if v.Kind() == dataset.KindText {
			if n, ok := words[lookupKey(v.String())]; ok {
				values[i] = dataset.Float(float64(n))
				continue
			}
		}
		nv, ok := dataset.CoerceNumeric(v)
		if f, isNum := nv.Number(); isNum {
			nv = dataset.Float(f)
			if math.IsInf(f, 0) || (rule.Integer && !bounded && !fitsInt64(f)) {
				nv, ok = dataset.Null(), false
			}
		}
		if !ok {
			unparsed++
		}
		values[i] = nv
	}

	clipped := 0
	if bounded {
		lo, hi := rule.Lower, rule.Upper
		for i, v := range values {
			f, ok := v.Number()
			if !ok {
				continue
			}
			if f < lo {
				values[i] = dataset.Float(lo)
				clipped++
			} else if f > hi {
				values[i] = dataset.Float(hi)
				clipped++
			}
		}
	}

	x := numbers(values)
	med := median(x)
	filled := 0
	if len(x) > 0 {
		for i, v := range values {
			if v.IsNull() {
				values[i] = dataset.Float(med)
				filled++
			}
		}
	}

	typ := dataset.TypeFloat
	if rule.Integer && filled+len(x) == len(values) && allFitInt64(values) {
		for i, v := range values {
			f, _ := v.Number()
			values[i] = dataset.Int(int64(f))
		}
		typ = dataset.TypeInteger
	}

	changed := replaceValues(c, values)
	c.Type = typ

	msg := fmt.Sprintf("%s: %d unparsable", rule.Policy, unparsed)
	if bounded {
		msg += fmt.Sprintf(", clipped %d into [%g, %g]", clipped, rule.Lower, rule.Upper)
	}
	if len(x) > 0 {
		msg += fmt.Sprintf(", filled %d with median=%g", filled, med)
	} else {
		msg += ", no values for a median"
	}
	return outcome{affected: changed, message: msg}
}

func allFitInt64(values []dataset.Value) bool {
	for _, v := range values {
		if f, ok := v.Number(); ok && !fitsInt64(f) {
			return false
		}
	}
	return true
}

// normalizeCategorical maps spellings to canonical labels and fills nulls
// with the mode.
func normalizeCategorical(c *dataset.Column, rule FieldRule) outcome {
	values := make([]dataset.Value, len(c.Values))
	for i, v := range c.Values {
		if v.IsNull() {
			continue
		}
		s := v.String()
		if label, ok := rule.Values[lookupKey(s)]; ok {
			values[i] = dataset.Text(label)
			continue
		}
		if rule.TitleCase {
			s = titleCase(s)
		}
		values[i] = dataset.Text(s)
	}

	msg := "categorical"
	filled := 0
	if fill, ok := mode(values); ok {
		for i, v := range values {
			if v.IsNull() {
				values[i] = fill
				filled++
			}
		}
		msg += fmt.Sprintf(": filled %d with mode=%s", filled, fill)
	} else {
		msg += ": no values for a mode"
	}

	changed := replaceValues(c, values)
	c.Type = dataset.TypeText
	return outcome{affected: changed, message: msg}
}

// RenameColumns renames columns by mapping old -> new. Names missing from the
// dataset are ignored. Bindings follow their columns.
func (e *Engine) RenameColumns(mapping map[string]string) *Engine {
	from := make([]string, 0, len(mapping))
	for k := range mapping {
		from = append(from, k)
	}
	sort.Strings(from)
	params := map[string]any{"mapping": mapping}

	return e.apply(OpRenameColumns, from, params, func() (outcome, error) {
		// Check the whole batch against the final name set before touching
		// anything.
		names := make(map[string]bool)
		for _, n := range e.ds.ColumnNames() {
			names[n] = true
		}
		var todo []string
		for _, old := range from {
			if names[old] && mapping[old] != old {
				todo = append(todo, old)
			}
		}
		final := make(map[string]bool, len(names))
		for n := range names {
			final[n] = true
		}
		for _, old := range todo {
			delete(final, old)
		}
		for _, old := range todo {
			to := mapping[old]
			if final[to] {
				return outcome{}, fmt.Errorf("%w: %q", dataset.ErrDuplicateColumn, to)
			}
			final[to] = true
		}

		// Two-phase rename so swaps like a->b, b->a work.
		tmp := make(map[string]string, len(todo))
		for i, old := range todo {
			t := fmt.Sprintf("\x00rename-%d", i)
			if err := e.ds.RenameColumn(old, t); err != nil {
				return outcome{}, err
			}
			tmp[old] = t
		}
		for _, old := range todo {
			if err := e.ds.RenameColumn(tmp[old], mapping[old]); err != nil {
				return outcome{}, err
			}
		}
		for i, b := range e.bindings {
			if to, ok := mapping[b.Column]; ok && slices.Contains(todo, b.Column) {
				e.bindings[i].Column = to
			}
		}
		return outcome{affected: len(todo), message: fmt.Sprintf("renamed %d columns", len(todo))}, nil
	})
}

// DropColumns removes columns. Names missing from the dataset are ignored.
func (e *Engine) DropColumns(columns ...string) *Engine {
	return e.apply(OpDropColumns, columns, nil, func() (outcome, error) {
		dropped := 0
		for _, name := range columns {
			if _, ok := e.ds.Column(name); !ok {
				continue
			}
			if err := e.ds.DropColumn(name); err != nil {
				return outcome{affected: dropped}, err
			}
			dropped++
		}
		kept := e.bindings[:0]
		for _, b := range e.bindings {
			if _, ok := e.ds.Column(b.Column); ok {
				kept = append(kept, b)
			}
		}
		e.bindings = kept
		return outcome{affected: dropped, message: fmt.Sprintf("dropped %d columns", dropped)}, nil
	})
}
