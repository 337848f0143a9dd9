// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/invowk/metagen/internal/diag"
	"github.com/invowk/metagen/pkg/model"
)

// ErrStrategyExecution is the sentinel error wrapped by StrategyExecutionError.
var ErrStrategyExecution = errors.New("discovery strategy failed")

type (
	// StrategyExecutionError records an error returned or a panic raised by
	// one strategy. It never aborts a pass.
	StrategyExecutionError struct {
		ID    StrategyID
		Cause error
		// Panic holds the recovered value when the strategy panicked.
		Panic any
	}

	// Executor resolves, gates and runs strategies over a program.
	Executor struct {
		registry    *Registry
		parallelism int
		logger      *slog.Logger
	}

	// ExecutorOption configures an Executor.
	ExecutorOption func(*Executor)

	// RunOptions selects the strategies of one run.
	RunOptions struct {
		// Strategies are the configured identifiers, in any order, possibly
		// repeated.
		Strategies []string
		// CrossModule enables strategies that inspect other modules.
		CrossModule bool
	}

	// RunResult is the outcome of a run.
	RunResult struct {
		Set *Set
		// Active lists the strategies that executed, in registry order.
		Active []StrategyID
		// Counts is the number of candidates each active strategy proposed.
		Counts      map[StrategyID]int
		Diagnostics []diag.Diagnostic
	}
)

// Error implements the error interface.
func (e *StrategyExecutionError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("strategy %s panicked: %v", e.ID, e.Panic)
	}
	return fmt.Sprintf("strategy %s failed: %v", e.ID, e.Cause)
}

// Unwrap returns the cause and ErrStrategyExecution for errors.Is() compatibility.
func (e *StrategyExecutionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrStrategyExecution, e.Cause}
	}
	return []error{ErrStrategyExecution}
}

// WithParallelism bounds the number of strategies running at once. Values
// below one mean runtime.GOMAXPROCS.
func WithParallelism(n int) ExecutorOption {
	return func(e *Executor) { e.parallelism = n }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor returns an Executor over reg.
func NewExecutor(reg *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: reg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the configured strategies and aggregates their candidates.
// The only errors are an UnknownStrategyError and cancellation of ctx.
func (e *Executor) Run(ctx context.Context, prog model.Program, opts RunOptions) (*RunResult, error) {
	strategies, err := e.registry.Resolve(opts.Strategies)
	if err != nil {
		return nil, err
	}

	res := &RunResult{Counts: make(map[StrategyID]int)}
	runnable := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		switch {
		case s.RequiresCrossModule() && !opts.CrossModule:
			res.Diagnostics = append(res.Diagnostics, diag.Info(diag.CodeStrategySkippedCrossModule, s.ID().String(),
				"skipped: requires cross-module discovery, which is disabled"))
		case !s.CanRun(prog):
			res.Diagnostics = append(res.Diagnostics, diag.Info(diag.CodeStrategyCannotRun, s.ID().String(),
				"skipped: not applicable to this program"))
		default:
			runnable = append(runnable, s)
		}
	}

	batches := make([]Batch, len(runnable))
	failures := make([]error, len(runnable))

	jobs := e.parallelism
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(max(1, min(jobs, len(runnable))))
	for i, s := range runnable {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			cands, err := e.runOne(ctx, s, prog)
			batches[i] = Batch{Strategy: s.ID(), Candidates: cands}
			failures[i] = err
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, s := range runnable {
		id := s.ID()
		res.Active = append(res.Active, id)
		res.Counts[id] = len(batches[i].Candidates)
		if failures[i] != nil {
			e.logger.Warn("discovery strategy failed", "strategy", id, "error", failures[i])
			res.Diagnostics = append(res.Diagnostics,
				diag.Warning(diag.CodeStrategyFailed, id.String(), "strategy failed; its remaining candidates were kept").Because(failures[i]))
		}
		e.logger.Debug("discovery strategy finished", "strategy", id, "candidates", res.Counts[id])
	}

	res.Set = Aggregate(batches)
	return res, nil
}

func (e *Executor) runOne(ctx context.Context, s Strategy, prog model.Program) (cands []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			cands = nil
			err = &StrategyExecutionError{ID: s.ID(), Panic: r}
		}
	}()

	raw, runErr := s.Discover(ctx, prog)
	for _, c := range raw {
		if c.Declaration == nil {
			continue
		}
		if ok, _ := c.Declaration.ID.IsValid(); !ok {
			continue
		}
		cands = append(cands, c)
	}
	if runErr != nil {
		return cands, &StrategyExecutionError{ID: s.ID(), Cause: runErr}
	}
	return cands, nil
}
