package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/enri3l/aws-ts-sub005/internal/telemetry"
)

// DefaultMaxConcurrency bounds the per-stage worker pool when no explicit
// limit is configured.
const DefaultMaxConcurrency = 5

// Progress observes check execution. Implementations must be purely
// observational — they can never alter timing or result semantics. The
// Service calls it from multiple goroutines within a stage.
type Progress interface {
	StageStarted(stage Stage, checks int)
	CheckCompleted(id string, status Status)
	StageCompleted(stage Stage)
}

// NopProgress ignores all progress callbacks. Used under automated and
// test conditions.
var NopProgress Progress = nopProgress{}

type nopProgress struct{}

func (nopProgress) StageStarted(Stage, int)       {}
func (nopProgress) CheckCompleted(string, Status) {}
func (nopProgress) StageCompleted(Stage)          {}

// Service executes registered checks against a Context, enforces stage
// ordering, and summarizes outcomes.
type Service struct {
	registry       *Registry
	maxConcurrency int
	progress       Progress
}

// Option configures a Service.
type Option func(*Service)

// WithMaxConcurrency bounds the per-stage worker pool. Values below 1 are
// ignored.
func WithMaxConcurrency(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.maxConcurrency = n
		}
	}
}

// WithProgress installs a progress observer.
func WithProgress(p Progress) Option {
	return func(s *Service) {
		if p != nil {
			s.progress = p
		}
	}
}

// NewService creates a Service over the given registry.
func NewService(registry *Registry, opts ...Option) *Service {
	s := &Service{
		registry:       registry,
		maxConcurrency: DefaultMaxConcurrency,
		progress:       NopProgress,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecuteStage runs all checks registered for the stage, dispatched
// concurrently through a bounded worker pool. Every dispatched check is
// awaited to completion; there is no mid-stage cancellation. A check that
// returns an error or panics is converted into a fail result, so the
// returned map always has exactly one entry per check registered for the
// stage.
func (s *Service) ExecuteStage(ctx context.Context, stage Stage, dctx *Context) map[string]*Result {
	checks := s.registry.ChecksForStage(stage)
	s.progress.StageStarted(stage, len(checks))

	results := make(map[string]*Result, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrency)

	for _, c := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			res := runCheck(ctx, c, dctx)
			res.Duration = time.Since(start)

			mu.Lock()
			results[c.ID()] = res
			mu.Unlock()

			telemetry.RecordCheck(ctx, c.ID(), stage.String(), res.Status.String(),
				float64(res.Duration.Milliseconds()))
			s.progress.CheckCompleted(c.ID(), res.Status)
		}(c)
	}
	wg.Wait()

	passed, warned, failed := tally(results)
	telemetry.RecordStage(ctx, stage.String(), passed, warned, failed)
	s.progress.StageCompleted(stage)
	return results
}

// runCheck executes one check, converting error returns and panics into a
// fail result. A single check must never abort its stage.
func runCheck(ctx context.Context, c Check, dctx *Context) (res *Result) {
	defer func() {
		if p := recover(); p != nil {
			res = &Result{
				Status:  StatusFail,
				Message: fmt.Sprintf("Check execution failed: %v", p),
			}
		}
	}()

	r, err := c.Execute(ctx, dctx)
	if err != nil {
		execErr := &ExecutionError{CheckID: c.ID(), Cause: err}
		return &Result{
			Status:      StatusFail,
			Message:     "Check execution failed: " + err.Error(),
			Remediation: execErr.Guidance(),
		}
	}
	if r == nil {
		return &Result{
			Status:  StatusFail,
			Message: "Check execution failed: check returned no result",
		}
	}
	return r
}

// RunDiagnostics runs all stages in fixed order, merging every stage's
// result map into one. After the environment stage, any fail aborts the
// pipeline — downstream diagnostics are unreliable without a working
// runtime — and the overall status is forced to fail. When the
// environment stage is clean, all remaining stages run to completion even
// when configuration or authentication checks fail, so one pass surfaces
// as many diagnostics as possible.
func (s *Service) RunDiagnostics(ctx context.Context, dctx *Context) *Summary {
	start := time.Now()
	all := make(map[string]*Result)

	for _, stage := range Stages() {
		stageResults := s.ExecuteStage(ctx, stage, dctx)
		for id, res := range stageResults {
			all[id] = res
		}
		if stage == StageEnvironment && anyFailed(stageResults) {
			sum := NewSummary(all, time.Since(start))
			sum.OverallStatus = StatusFail
			return sum
		}
	}
	return NewSummary(all, time.Since(start))
}

// anyFailed reports whether any result in the map has StatusFail.
func anyFailed(results map[string]*Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// tally counts results by status.
func tally(results map[string]*Result) (passed, warned, failed int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusWarn:
			warned++
		case StatusFail:
			failed++
		}
	}
	return passed, warned, failed
}

// Summary aggregates a diagnostic run. It is fully derived from Results
// and never independently mutated, except that RunDiagnostics forces
// OverallStatus to fail when it aborts after the environment stage.
type Summary struct {
	TotalChecks   int           `json:"totalChecks"`
	PassedChecks  int           `json:"passedChecks"`
	WarningChecks int           `json:"warningChecks"`
	FailedChecks  int           `json:"failedChecks"`
	OverallStatus Status        `json:"overallStatus"`
	ExecutionTime time.Duration `json:"executionTime"`

	Results map[string]*Result `json:"-"`
}

// NewSummary derives a Summary from a result map. Pure and deterministic
// for a given (results, executionTime) — it drives no check execution.
func NewSummary(results map[string]*Result, executionTime time.Duration) *Summary {
	passed, warned, failed := tally(results)
	overall := StatusPass
	switch {
	case failed > 0:
		overall = StatusFail
	case warned > 0:
		overall = StatusWarn
	}
	return &Summary{
		TotalChecks:   len(results),
		PassedChecks:  passed,
		WarningChecks: warned,
		FailedChecks:  failed,
		OverallStatus: overall,
		ExecutionTime: executionTime,
		Results:       results,
	}
}

// MarshalJSON encodes the summary counts with executionTime in
// milliseconds. Results are serialized separately by the output layer.
func (s *Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalChecks   int    `json:"totalChecks"`
		PassedChecks  int    `json:"passedChecks"`
		WarningChecks int    `json:"warningChecks"`
		FailedChecks  int    `json:"failedChecks"`
		OverallStatus Status `json:"overallStatus"`
		ExecutionTime int64  `json:"executionTime"`
	}{
		TotalChecks:   s.TotalChecks,
		PassedChecks:  s.PassedChecks,
		WarningChecks: s.WarningChecks,
		FailedChecks:  s.FailedChecks,
		OverallStatus: s.OverallStatus,
		ExecutionTime: s.ExecutionTime.Milliseconds(),
	})
}
