package core

// engine.go holds the Engine type and the operation boundary every cleaning
// operation passes through.
//
// Each exported operation validates its inputs, mutates the working copy and
// appends exactly one CleaningAction. Errors and panics never escape an
// operation: they become a skipped or failed action and the chain goes on.

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

// Engine applies cleaning operations to a private working copy of a dataset.
// It is not safe for concurrent use.
type Engine struct {
	ds       *dataset.Dataset
	original dataset.Shape
	actions  []CleaningAction
	bindings Bindings
	rules    map[CanonicalField]FieldRule
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger actions are reported to.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRules replaces the per-field normalization table.
func WithRules(rules map[CanonicalField]FieldRule) EngineOption {
	return func(e *Engine) {
		if rules != nil {
			e.rules = rules
		}
	}
}

// NewEngine clones ds into a working copy. The caller's dataset is never
// touched. A nil dataset yields an engine over an empty one.
func NewEngine(ds *dataset.Dataset, opts ...EngineOption) *Engine {
	if ds == nil {
		ds = dataset.New("")
	}
	work := ds.Clone()
	e := &Engine{
		ds:       work,
		original: work.Shape(),
		rules:    DefaultRules(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dataset returns the working copy.
func (e *Engine) Dataset() *dataset.Dataset { return e.ds }

// Bindings returns the field bindings from the last ResolveAliases call.
func (e *Engine) Bindings() Bindings {
	out := make(Bindings, len(e.bindings))
	copy(out, e.bindings)
	return out
}

// Actions returns a copy of the action log.
func (e *Engine) Actions() []CleaningAction {
	out := make([]CleaningAction, len(e.actions))
	copy(out, e.actions)
	return out
}

// EngineSummary is the engine's own before/after accounting.
type EngineSummary struct {
	OriginalShape  dataset.Shape    `json:"original_shape" yaml:"original_shape"`
	FinalShape     dataset.Shape    `json:"final_shape" yaml:"final_shape"`
	RowsRemoved    int              `json:"rows_removed" yaml:"rows_removed"`
	ColumnsRemoved int              `json:"columns_removed" yaml:"columns_removed"`
	Actions        []CleaningAction `json:"actions" yaml:"actions"`
}

// Summary reports shapes and the action log so far.
func (e *Engine) Summary() EngineSummary {
	final := e.ds.Shape()
	return EngineSummary{
		OriginalShape:  e.original,
		FinalShape:     final,
		RowsRemoved:    e.original.Rows - final.Rows,
		ColumnsRemoved: e.original.Columns - final.Columns,
		Actions:        e.Actions(),
	}
}

// outcome is what an operation body reports back to apply.
type outcome struct {
	affected int
	message  string
}

// apply runs fn and records exactly one action for it.
func (e *Engine) apply(op string, cols []string, params map[string]any, fn func() (outcome, error)) *Engine {
	action := CleaningAction{
		Seq:       len(e.actions) + 1,
		Operation: op,
		Columns:   cols,
		Params:    params,
	}

	res, err := runGuarded(fn)
	switch {
	case err == nil:
		action.Status = StatusApplied
		action.Affected = res.affected
		action.Message = res.message
	case errors.Is(err, ErrColumnNotFound), errors.Is(err, ErrIncompatibleType), errors.Is(err, ErrFieldNotBound):
		action.Status = StatusSkipped
		action.Message = err.Error()
	default:
		action.Status = StatusFailed
		action.Message = err.Error()
	}
	e.actions = append(e.actions, action)

	attrs := []any{"seq", action.Seq, "op", op, "status", action.Status, "affected", action.Affected}
	if len(cols) > 0 {
		attrs = append(attrs, "columns", cols)
	}
	if action.Status == StatusApplied {
		e.logger.Info("cleaning action", attrs...)
	} else {
		e.logger.Warn("cleaning action", append(attrs, "reason", action.Message)...)
	}
	return e
}

func runGuarded(fn func() (outcome, error)) (res outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = outcome{}
			err = fmt.Errorf("%w: %v", ErrOperationPanic, r)
		}
	}()
	return fn()
}

// column resolves name on the working copy.
func (e *Engine) column(name string) (*dataset.Column, error) {
	return e.ds.MustColumn(name)
}

// textColumns returns the names of all text columns.
func (e *Engine) textColumns() []string {
	var names []string
	for _, c := range e.ds.Columns() {
		if c.Type == dataset.TypeText {
			names = append(names, c.Name)
		}
	}
	return names
}

// numericColumns returns the names of all integer and float columns.
func (e *Engine) numericColumns() []string {
	var names []string
	for _, c := range e.ds.Columns() {
		if c.Type.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// replaceValues swaps in values and returns how many cells changed.
func replaceValues(c *dataset.Column, values []dataset.Value) int {
	changed := 0
	for i := range values {
		if c.Values[i].Key() != values[i].Key() {
			changed++
		}
	}
	c.Values = values
	return changed
}
