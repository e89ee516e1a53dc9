package core

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/dataset"
	"github.com/JonMunkholm/datacleaner/internal/logging"
	"github.com/google/uuid"
)

// Run is a finished cleaning run kept for later retrieval.
type Run struct {
	ID      string    `json:"id" yaml:"id"`
	Name    string    `json:"name" yaml:"name"`
	Source  string    `json:"source" yaml:"source"`
	Created time.Time `json:"created" yaml:"created"`
	Elapsed Duration  `json:"elapsed" yaml:"elapsed"`
	Result  *Result   `json:"result" yaml:"result"`
}

// Duration marshals as a Go duration string.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// RunSummary is the list view of a Run.
type RunSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Source      string        `json:"source"`
	Created     time.Time     `json:"created"`
	Stage       Stage         `json:"stage"`
	FinalShape  dataset.Shape `json:"final_shape"`
	RowsRemoved int           `json:"rows_removed"`
	Actions     int           `json:"actions"`
}

// Service owns the pipeline, the run limiter and the store of recent runs.
type Service struct {
	pipeline  *Pipeline
	limiter   *RunLimiter
	retention time.Duration

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewService creates a Service from the cleaning section of cfg. advisor may
// be nil.
func NewService(advisor Advisor, cfg *config.Config) (*Service, error) {
	opts, err := OptionsFromConfig(cfg.Cleaning)
	if err != nil {
		return nil, err
	}

	return &Service{
		pipeline:  NewPipeline(advisor, opts),
		limiter:   NewRunLimiter(cfg.Cleaning.MaxConcurrentRuns, cfg.Cleaning.RunMaxWait),
		retention: cfg.Cleaning.RunRetention,
		runs:      make(map[string]*Run),
	}, nil
}

// OptionsFromConfig builds pipeline options with the built-in alias table
// and rules.
func OptionsFromConfig(c config.CleaningConfig) (Options, error) {
	keep, err := ParseKeep(c.DedupKeep)
	if err != nil {
		return Options{}, fmt.Errorf("dedup keep: %w", err)
	}
	method, err := ParseOutlierMethod(c.OutlierMethod)
	if err != nil {
		return Options{}, fmt.Errorf("outlier method: %w", err)
	}

	opts := DefaultOptions()
	opts.Keep = keep
	opts.RemoveOutliers = c.RemoveOutliers
	opts.OutlierColumns = c.OutlierColumns
	opts.OutlierMethod = method
	opts.OutlierThreshold = c.OutlierThreshold
	return opts, nil
}

// Clean runs the pipeline over ds and stores the run. It waits for a run
// slot first and returns ErrTooManyRuns when none frees up in time. source
// describes where ds came from, such as "upload" or "postgres".
func (s *Service) Clean(ctx context.Context, ds *dataset.Dataset, source string) (run *Run, err error) {
	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	id := uuid.New().String()
	name := ""
	if ds != nil {
		name = ds.Name
	}
	logger := logging.WithFields(ctx, "run_id", id, "dataset", name, "source", source)
	ctx = logging.NewContext(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in cleaning run", "panic", r)
			run, err = nil, fmt.Errorf("%w: %v", ErrOperationPanic, r)
		}
	}()

	started := time.Now()
	logger.Info("run started")

	result, err := s.pipeline.Run(ctx, ds)
	if err != nil {
		return nil, err
	}

	run = &Run{
		ID:      id,
		Name:    name,
		Source:  source,
		Created: started,
		Elapsed: Duration(time.Since(started)),
		Result:  result,
	}

	s.mu.Lock()
	s.runs[id] = run
	s.mu.Unlock()
	s.cleanup(id, s.retention)

	logger.Info("run stored", "elapsed", time.Duration(run.Elapsed), "retention", s.retention)
	return run, nil
}

// Profile profiles ds without cleaning it.
func (s *Service) Profile(ds *dataset.Dataset) (Profile, error) {
	if ds == nil || ds.NumColumns() == 0 {
		return Profile{}, ErrNoDataset
	}
	return ProfileDataset(ds), nil
}

// GetRun returns a stored run.
func (s *Service) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// ListRuns returns stored runs, newest first.
func (s *Service) ListRuns() []RunSummary {
	s.mu.RLock()
	out := make([]RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, RunSummary{
			ID:          run.ID,
			Name:        run.Name,
			Source:      run.Source,
			Created:     run.Created,
			Stage:       run.Result.Stage,
			FinalShape:  run.Result.Report.FinalShape,
			RowsRemoved: run.Result.Report.RowsRemoved,
			Actions:     len(run.Result.Actions),
		})
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b RunSummary) int {
		return b.Created.Compare(a.Created)
	})
	return out
}

// LimiterStatus reports run slot usage.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until in-flight runs finish or ctx is done. Used during
// shutdown.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// cleanup removes the run from the store after a delay.
func (s *Service) cleanup(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, id)
		s.mu.Unlock()
	})
}
