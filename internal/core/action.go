package core

import (
	"fmt"
	"strings"
)

// ActionStatus records what became of one engine operation.
type ActionStatus string

const (
	StatusApplied ActionStatus = "applied"
	StatusSkipped ActionStatus = "skipped"
	StatusFailed  ActionStatus = "failed"
)

// CleaningAction is one entry of the engine's append-only log.
//
// Affected counts rows for row-removing operations and cells for value
// operations. It is zero for anything not applied.
type CleaningAction struct {
	Seq       int            `json:"seq" yaml:"seq"`
	Operation string         `json:"operation" yaml:"operation"`
	Columns   []string       `json:"columns,omitempty" yaml:"columns,omitempty"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Affected  int            `json:"affected" yaml:"affected"`
	Status    ActionStatus   `json:"status" yaml:"status"`
	Message   string         `json:"message,omitempty" yaml:"message,omitempty"`
}

func (a CleaningAction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", a.Seq, a.Operation)
	if len(a.Columns) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(a.Columns, ", "))
	}
	fmt.Fprintf(&b, " %s affected=%d", a.Status, a.Affected)
	if a.Message != "" {
		b.WriteString(": ")
		b.WriteString(a.Message)
	}
	return b.String()
}

// Operation names as they appear in the action log.
const (
	OpDedup           = "dedup"
	OpTrimWhitespace  = "trim_whitespace"
	OpNormalizeNulls  = "normalize_null_tokens"
	OpResolveAliases  = "resolve_aliases"
	OpNormalizeField  = "normalize_field"
	OpImpute          = "impute"
	OpFillValue       = "fill_value"
	OpRemoveOutliers  = "remove_outliers"
	OpClip            = "clip"
	OpCast            = "cast"
	OpMapValues       = "map_values"
	OpStandardizeCase = "standardize_case"
	OpRenameColumns   = "rename_columns"
	OpDropColumns     = "drop_columns"
)

// Keep selects which member of a duplicate group Dedup retains.
type Keep string

const (
	KeepFirst Keep = "first"
	KeepLast  Keep = "last"
	KeepNone  Keep = "none"
)

// ParseKeep accepts first, last or none. Empty means first.
func ParseKeep(s string) (Keep, error) {
	switch Keep(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeepFirst:
		return KeepFirst, nil
	case KeepLast:
		return KeepLast, nil
	case KeepNone, "false":
		return KeepNone, nil
	default:
		return KeepFirst, fmt.Errorf("%w: keep %q", ErrUnknownStrategy, s)
	}
}

// OutlierMethod selects the rule RemoveOutliers applies.
type OutlierMethod string

const (
	OutlierIQR    OutlierMethod = "iqr"
	OutlierZScore OutlierMethod = "zscore"
)

// Default outlier thresholds: the IQR multiplier and the z-score cutoff.
const (
	DefaultIQRMultiplier = 1.5
	DefaultZThreshold    = 3.0
)

// ParseOutlierMethod accepts iqr or zscore (also "z-score", "z").
func ParseOutlierMethod(s string) (OutlierMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iqr":
		return OutlierIQR, nil
	case "zscore", "z-score", "z":
		return OutlierZScore, nil
	default:
		return OutlierIQR, fmt.Errorf("%w: outlier method %q", ErrUnknownStrategy, s)
	}
}

// ImputeStrategy selects how Impute fills missing values.
type ImputeStrategy string

const (
	ImputeMedian   ImputeStrategy = "median"
	ImputeMean     ImputeStrategy = "mean"
	ImputeMode     ImputeStrategy = "mode"
	ImputeForward  ImputeStrategy = "forward"
	ImputeBackward ImputeStrategy = "backward"
)

// ParseImputeStrategy also accepts the pandas spellings ffill and bfill.
func ParseImputeStrategy(s string) (ImputeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "median":
		return ImputeMedian, nil
	case "mean":
		return ImputeMean, nil
	case "mode":
		return ImputeMode, nil
	case "forward", "ffill":
		return ImputeForward, nil
	case "backward", "bfill":
		return ImputeBackward, nil
	default:
		return "", fmt.Errorf("%w: impute %q", ErrUnknownStrategy, s)
	}
}

// CaseMode selects the StandardizeCase transform.
type CaseMode string

const (
	CaseLower      CaseMode = "lower"
	CaseUpper      CaseMode = "upper"
	CaseTitle      CaseMode = "title"
	CaseCapitalize CaseMode = "capitalize"
)

// ParseCaseMode accepts lower, upper, title or capitalize.
func ParseCaseMode(s string) (CaseMode, error) {
	switch m := CaseMode(strings.ToLower(strings.TrimSpace(s))); m {
	case CaseLower, CaseUpper, CaseTitle, CaseCapitalize:
		return m, nil
	default:
		return "", fmt.Errorf("%w: case %q", ErrUnknownStrategy, s)
	}
}
