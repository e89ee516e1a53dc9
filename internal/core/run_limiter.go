package core

// run_limiter.go bounds how many cleaning runs execute at once.
//
// Each run holds a full copy of its dataset plus the cleaned result, so
// memory grows with parallelism. Slots are a buffered channel; a run that
// cannot get one within maxWait fails with ErrTooManyRuns and is counted as
// rejected. The idle channel is closed whenever no run holds a slot, which is
// what shutdown waits on.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyRuns is returned when all run slots are occupied and the wait
// timeout expires.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

// DefaultMaxConcurrentRuns is the default limit for parallel runs.
const DefaultMaxConcurrentRuns = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// RunLimiter caps concurrent pipeline runs.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu       sync.Mutex
	active   int
	waiting  int
	rejected int64
	idle     chan struct{}
}

// NewRunLimiter creates a limiter that allows at most maxConcurrent runs.
// Non-positive arguments fall back to the defaults.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	idle := make(chan struct{})
	close(idle)
	return &RunLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		idle:    idle,
	}
}

// Acquire waits up to maxWait for a slot and returns the func that gives it
// back. Calling release more than once is harmless. A cancelled ctx returns
// its error rather than ErrTooManyRuns.
func (l *RunLimiter) Acquire(ctx context.Context) (release func(), err error) {
	if release, ok := l.TryAcquire(); ok {
		return release, nil
	}

	l.mu.Lock()
	l.waiting++
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
	}()

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return l.hold(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		l.mu.Lock()
		l.rejected++
		l.mu.Unlock()
		return nil, ErrTooManyRuns
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *RunLimiter) TryAcquire() (release func(), ok bool) {
	select {
	case l.slots <- struct{}{}:
		return l.hold(), true
	default:
		return nil, false
	}
}

// hold records a slot just taken and returns its release func.
func (l *RunLimiter) hold() func() {
	l.mu.Lock()
	if l.active == 0 {
		l.idle = make(chan struct{})
	}
	l.active++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.active--
			if l.active == 0 {
				close(l.idle)
			}
			l.mu.Unlock()
			<-l.slots
		})
	}
}

// WaitForDrain blocks until no run holds a slot or ctx is done.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunLimiterStatus is a point-in-time view of a RunLimiter.
type RunLimiterStatus struct {
	Active        int   `json:"active" yaml:"active"`
	Available     int   `json:"available" yaml:"available"`
	MaxConcurrent int   `json:"max_concurrent" yaml:"max_concurrent"`
	Waiting       int   `json:"waiting" yaml:"waiting"`
	Rejected      int64 `json:"rejected" yaml:"rejected"`
}

// Status returns the current limiter state for the health endpoint and the
// dashboard.
func (l *RunLimiter) Status() RunLimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	return RunLimiterStatus{
		Active:        l.active,
		Available:     cap(l.slots) - l.active,
		MaxConcurrent: cap(l.slots),
		Waiting:       l.waiting,
		Rejected:      l.rejected,
	}
}
