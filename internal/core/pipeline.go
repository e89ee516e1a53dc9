package core

// pipeline.go drives one cleaning run through its fixed stages:
//
//	PROFILE -> DETECT -> PLAN -> EXECUTE -> VALIDATE -> DONE
//
// Advisor output is collected and reported but never changes what EXECUTE
// does; the operation order below is the same for every dataset.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
	"github.com/JonMunkholm/datacleaner/internal/logging"
)

// Stage is a pipeline state.
type Stage string

const (
	StageIdle     Stage = "idle"
	StageProfile  Stage = "profile"
	StageDetect   Stage = "detect"
	StagePlan     Stage = "plan"
	StageExecute  Stage = "execute"
	StageValidate Stage = "validate"
	StageDone     Stage = "done"
	StageAborted  Stage = "aborted"
)

// FallbackPlan replaces a plan the advisor could not produce.
const FallbackPlan = "No remediation plan available; review the reported issues manually."

func isAllowedTransition(from, to Stage) bool {
	switch from {
	case StageIdle:
		return to == StageProfile || to == StageAborted
	case StageProfile:
		return to == StageDetect
	case StageDetect:
		return to == StagePlan
	case StagePlan:
		return to == StageExecute
	case StageExecute:
		return to == StageValidate
	case StageValidate:
		return to == StageDone
	default:
		return false
	}
}

// StageRecord times one stage of a run.
type StageRecord struct {
	Stage    Stage         `json:"stage" yaml:"stage"`
	Started  time.Time     `json:"started" yaml:"started"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
	Note     string        `json:"note,omitempty" yaml:"note,omitempty"`
}

// Result is everything a run produced.
type Result struct {
	Stage    Stage            `json:"stage" yaml:"stage"`
	Profile  Profile          `json:"profile" yaml:"profile"`
	Summary  string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	Issues   []QualityIssue   `json:"issues" yaml:"issues"`
	Plan     string           `json:"plan,omitempty" yaml:"plan,omitempty"`
	Bindings Bindings         `json:"bindings" yaml:"bindings"`
	Dataset  *dataset.Dataset `json:"-" yaml:"-"`
	Actions  []CleaningAction `json:"actions" yaml:"actions"`
	Report   ValidationReport `json:"report" yaml:"report"`
	Stages   []StageRecord    `json:"stages" yaml:"stages"`
}

func (r *Result) transition(to Stage) error {
	if !isAllowedTransition(r.Stage, to) {
		return fmt.Errorf("disallowed stage transition: %s -> %s", r.Stage, to)
	}
	r.Stage = to
	return nil
}

// Options tunes the execute stage.
type Options struct {
	Aliases AliasTable
	Rules   map[CanonicalField]FieldRule
	Keep    Keep

	// RemoveOutliers enables the final outlier pass over OutlierColumns
	// (every numeric column when empty).
	RemoveOutliers   bool
	OutlierColumns   []string
	OutlierMethod    OutlierMethod
	OutlierThreshold float64
}

// DefaultOptions returns the built-in alias table and rules, first-occurrence
// dedup and no outlier pass.
func DefaultOptions() Options {
	return Options{
		Aliases:       DefaultAliasTable(),
		Rules:         DefaultRules(),
		Keep:          KeepFirst,
		OutlierMethod: OutlierIQR,
	}
}

// Pipeline runs datasets through the cleaning stages. A Pipeline holds no
// per-run state and can serve concurrent runs.
type Pipeline struct {
	advisor Advisor
	opts    Options
}

// NewPipeline returns a pipeline. advisor may be nil, in which case no issues
// or plan are produced.
func NewPipeline(advisor Advisor, opts Options) *Pipeline {
	if opts.Aliases == nil {
		opts.Aliases = DefaultAliasTable()
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Keep == "" {
		opts.Keep = KeepFirst
	}
	return &Pipeline{advisor: advisor, opts: opts}
}

// Run cleans ds. The input is never modified; the cleaned copy is
// Result.Dataset. The only error is ErrNoDataset, returned when ds is nil or
// has no columns, in which case Result.Dataset is ds itself.
func (p *Pipeline) Run(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	logger := logging.FromContext(ctx)
	res := &Result{Stage: StageIdle, Dataset: ds}

	if ds == nil || ds.NumColumns() == 0 {
		_ = res.transition(StageAborted)
		logger.Error("cleaning aborted", "error", ErrNoDataset)
		return res, ErrNoDataset
	}

	snapshot := ds.Clone()
	var engine *Engine

	stages := []struct {
		stage Stage
		run   func() string
	}{
		{StageProfile, func() string {
			res.Profile = ProfileDataset(snapshot)
			res.Summary = p.summarize(ctx, logger, res.Profile)
			return fmt.Sprintf("shape %s", res.Profile.Shape)
		}},
		{StageDetect, func() string {
			res.Issues = p.detect(ctx, logger, res.Profile)
			return fmt.Sprintf("%d issues", len(res.Issues))
		}},
		{StagePlan, func() string {
			res.Plan = p.plan(ctx, logger, res.Issues)
			return ""
		}},
		{StageExecute, func() string {
			engine = NewEngine(ds, WithLogger(logger), WithRules(p.opts.Rules))
			p.execute(engine)
			res.Dataset = engine.Dataset()
			res.Actions = engine.Actions()
			res.Bindings = engine.Bindings()
			return fmt.Sprintf("%d actions", len(res.Actions))
		}},
		{StageValidate, func() string {
			res.Report = Validate(snapshot, res.Dataset)
			return fmt.Sprintf("%d rows removed", res.Report.RowsRemoved)
		}},
	}

	for _, s := range stages {
		if err := res.transition(s.stage); err != nil {
			// Unreachable with the fixed table above.
			panic(err)
		}
		started := time.Now()
		note := s.run()
		res.Stages = append(res.Stages, StageRecord{
			Stage:    s.stage,
			Started:  started,
			Duration: time.Since(started),
			Note:     note,
		})
		logger.Debug("stage complete", "stage", s.stage, "note", note)
	}
	if err := res.transition(StageDone); err != nil {
		panic(err)
	}

	logger.Info("cleaning complete",
		"rows_before", res.Report.OriginalShape.Rows,
		"rows_after", res.Report.FinalShape.Rows,
		"actions", len(res.Actions),
	)
	return res, nil
}

// execute applies the fixed operation sequence.
func (p *Pipeline) execute(e *Engine) {
	e.Dedup(nil, p.opts.Keep).
		TrimWhitespace().
		NormalizeNullTokens().
		ResolveAliases(p.opts.Aliases)

	bindings := e.Bindings()
	for _, b := range bindings {
		e.NormalizeField(b.Field)
	}

	// Fallback imputation for the columns no rule covered.
	for _, c := range e.Dataset().Columns() {
		if _, bound := bindings.Field(c.Name); bound || c.NullCount() == 0 {
			continue
		}
		switch {
		case c.Type.IsNumeric():
			e.Impute(c.Name, ImputeMedian)
		case c.Type == dataset.TypeText, c.Type == dataset.TypeBoolean:
			e.Impute(c.Name, ImputeMode)
		}
	}

	if p.opts.RemoveOutliers {
		e.RemoveOutliers(p.opts.OutlierColumns, p.opts.OutlierMethod, p.opts.OutlierThreshold)
	}
}

func (p *Pipeline) summarize(ctx context.Context, logger *slog.Logger, prof Profile) string {
	if p.advisor == nil {
		return ""
	}
	text, err := guardAdvisor(func() (string, error) { return p.advisor.Summarize(ctx, prof) })
	if err != nil {
		logger.Warn("advisor summary failed", "error", err)
		return ""
	}
	return text
}

func (p *Pipeline) detect(ctx context.Context, logger *slog.Logger, prof Profile) []QualityIssue {
	if p.advisor == nil {
		return []QualityIssue{}
	}
	text, err := guardAdvisor(func() (string, error) { return p.advisor.DetectIssues(ctx, prof) })
	if err != nil {
		logger.Warn("issue detection failed", "error", err)
		return []QualityIssue{FallbackIssue}
	}
	return ParseIssues(text)
}

func (p *Pipeline) plan(ctx context.Context, logger *slog.Logger, issues []QualityIssue) string {
	if p.advisor == nil {
		return ""
	}
	text, err := guardAdvisor(func() (string, error) { return p.advisor.Plan(ctx, issues) })
	if err != nil {
		logger.Warn("plan generation failed", "error", err)
		return FallbackPlan
	}
	return text
}

// guardAdvisor turns an advisor panic into an error.
func guardAdvisor(call func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("advisor panic: %v", r)
		}
	}()
	return call()
}
