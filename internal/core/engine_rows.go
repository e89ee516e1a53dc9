package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

// Dedup drops rows equal to another row on subset (all columns when empty).
// keep picks the survivor: the first occurrence, the last, or none at all.
func (e *Engine) Dedup(subset []string, keep Keep) *Engine {
	if keep == "" {
		keep = KeepFirst
	}
	params := map[string]any{"keep": string(keep)}
	return e.apply(OpDedup, subset, params, func() (outcome, error) {
		cols := make([]*dataset.Column, 0, len(subset))
		for _, name := range subset {
			c, err := e.column(name)
			if err != nil {
				return outcome{}, err
			}
			cols = append(cols, c)
		}
		if len(cols) == 0 {
			cols = e.ds.Columns()
		}

		mask, err := dedupMask(cols, e.ds.Rows(), keep)
		if err != nil {
			return outcome{}, err
		}
		removed, err := e.ds.KeepRows(mask)
		if err != nil {
			return outcome{}, err
		}
		return outcome{affected: removed, message: fmt.Sprintf("removed %d duplicate rows", removed)}, nil
	})
}

func dedupMask(cols []*dataset.Column, rows int, keep Keep) ([]bool, error) {
	mask := make([]bool, rows)
	keys := make([]string, rows)
	for i := range keys {
		keys[i] = dataset.RowKey(cols, i)
	}

	switch keep {
	case KeepFirst:
		seen := make(map[string]bool, rows)
		for i, k := range keys {
			mask[i] = !seen[k]
			seen[k] = true
		}
	case KeepLast:
		seen := make(map[string]bool, rows)
		for i := rows - 1; i >= 0; i-- {
			mask[i] = !seen[keys[i]]
			seen[keys[i]] = true
		}
	case KeepNone:
		counts := make(map[string]int, rows)
		for _, k := range keys {
			counts[k]++
		}
		for i, k := range keys {
			mask[i] = counts[k] == 1
		}
	default:
		return nil, fmt.Errorf("%w: keep %q", ErrUnknownStrategy, keep)
	}
	return mask, nil
}

// RemoveOutliers drops rows whose value in any of columns is an outlier.
// Columns are processed in order and each one sees the rows the previous
// ones left. No columns means every numeric column. threshold <= 0 selects
// the method's default. Nulls are never treated as outliers.
func (e *Engine) RemoveOutliers(columns []string, method OutlierMethod, threshold float64) *Engine {
	if method == "" {
		method = OutlierIQR
	}
	if threshold <= 0 {
		threshold = DefaultIQRMultiplier
		if method == OutlierZScore {
			threshold = DefaultZThreshold
		}
	}
	params := map[string]any{"method": string(method), "threshold": threshold}
	return e.apply(OpRemoveOutliers, columns, params, func() (outcome, error) {
		if method != OutlierIQR && method != OutlierZScore {
			return outcome{}, fmt.Errorf("%w: outlier method %q", ErrUnknownStrategy, method)
		}

		targets := columns
		if len(targets) == 0 {
			targets = e.numericColumns()
		}

		var notes []string
		var lastErr error
		usable, removed := 0, 0
		for _, name := range targets {
			c, err := e.column(name)
			if err != nil {
				notes = append(notes, fmt.Sprintf("%s: not found", name))
				lastErr = err
				continue
			}
			if !c.Type.IsNumeric() {
				notes = append(notes, fmt.Sprintf("%s: not numeric", name))
				lastErr = fmt.Errorf("%w: %q is %s", ErrIncompatibleType, name, c.Type)
				continue
			}
			usable++

			keep, ok := outlierMask(c.Values, method, threshold)
			if !ok {
				notes = append(notes, fmt.Sprintf("%s: no spread", name))
				continue
			}
			n, err := e.ds.KeepRows(keep)
			if err != nil {
				return outcome{affected: removed}, err
			}
			removed += n
		}

		if usable == 0 && lastErr != nil {
			return outcome{}, lastErr
		}
		msg := fmt.Sprintf("removed %d outlier rows", removed)
		if len(notes) > 0 {
			msg += " (skipped " + strings.Join(notes, ", ") + ")"
		}
		return outcome{affected: removed, message: msg}, nil
	})
}

// outlierMask returns true for rows to keep. ok is false when the column has
// too few values or no spread to judge.
func outlierMask(values []dataset.Value, method OutlierMethod, threshold float64) ([]bool, bool) {
	x := numbers(values)
	keep := make([]bool, len(values))
	for i := range keep {
		keep[i] = true
	}

	var outside func(float64) bool
	switch method {
	case OutlierZScore:
		if len(x) < 2 {
			return keep, false
		}
		m, sd := mean(x), sampleStd(x)
		if sd == 0 {
			return keep, false
		}
		outside = func(v float64) bool { return math.Abs(v-m)/sd >= threshold }
	default:
		if len(x) == 0 {
			return keep, false
		}
		q1, q3 := quantile(x, 0.25), quantile(x, 0.75)
		iqr := q3 - q1
		lo, hi := q1-threshold*iqr, q3+threshold*iqr
		outside = func(v float64) bool { return v < lo || v > hi }
	}

	for i, v := range values {
		if f, ok := v.Number(); ok && outside(f) {
			keep[i] = false
		}
	}
	return keep, true
}
