// Package harness drives the server under test through the fixed
// conformance sequence and tallies the outcome.
package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/itz4blitz/mcpcheck/internal/client"
)

// StepResult records one executed step.
type StepResult struct {
	Name string
	Err  error
}

func (r StepResult) Passed() bool { return r.Err == nil }

// Result is the aggregate outcome of one run. Steps holds only the steps
// that actually executed: everything after the first failure is skipped.
type Result struct {
	Steps       []StepResult
	Passed      int
	Total       int
	Interrupted bool
}

func (r Result) AllPassed() bool {
	return !r.Interrupted && r.Passed == r.Total
}

// Runner executes the conformance steps strictly in order, stopping at the
// first failure. Each run is tagged with a fresh id so log lines from
// separate runs can be told apart.
type Runner struct {
	client *client.Client
	logger *slog.Logger
	steps  []Step
	runID  string
}

func NewRunner(c *client.Client, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runID := uuid.New().String()
	return &Runner{
		client: c,
		logger: logger.With("run", runID),
		steps:  Sequence(),
		runID:  runID,
	}
}

func (r *Runner) RunID() string { return r.runID }

// Run executes the sequence. A cancelled context marks the run interrupted
// rather than counting the pending step as a conformance failure.
func (r *Runner) Run(ctx context.Context) Result {
	result := Result{Total: len(r.steps)}

	for _, step := range r.steps {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		r.logger.Info("step started", "step", step.Name)
		err := step.Run(ctx, r.client)

		if err != nil && errors.Is(err, context.Canceled) {
			result.Interrupted = true
			r.logger.Warn("run interrupted", "step", step.Name)
			break
		}

		result.Steps = append(result.Steps, StepResult{Name: step.Name, Err: err})
		if err != nil {
			r.logger.Error("step failed", "step", step.Name, "error", err)
			break
		}
		result.Passed++
		r.logger.Info("step passed", "step", step.Name)
	}

	r.logger.Info("run finished",
		"passed", result.Passed,
		"total", result.Total,
		"interrupted", result.Interrupted,
	)
	return result
}
