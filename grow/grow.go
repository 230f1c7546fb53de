// Package grow runs generation jobs described by configuration sections,
// either one at a time with streamed progress or as a bounded batch.
package grow

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/arbor"
	"github.com/gogpu/arbor/config"
	"github.com/gogpu/arbor/graph"
	"github.com/gogpu/arbor/internal/parallel"
	"github.com/gogpu/arbor/random"
	"github.com/gogpu/arbor/turtle"
)

// ErrEmptyJob is returned for a job with neither section set.
var ErrEmptyJob = errors.New("grow: job has no lsystem or colonize section")

// Job is one graph to generate. Exactly one section should be set; when
// both are, LSystem wins.
type Job struct {
	Name     string
	LSystem  *config.LSystem
	Colonize *config.Colonize
}

// Result is a message on a Submit channel. Partial results carry a
// snapshot taken during colonization; the last message is final.
type Result struct {
	Job       string
	Graph     *graph.Graph
	Partial   bool
	Iteration int
	Err       error
}

// Runner executes jobs.
type Runner struct {
	// Pool parallelizes colonization passes. Nil means the shared pool.
	Pool *parallel.WorkerPool

	// Buffer is the number of partial results held for a slow reader.
	// Partials beyond it are dropped; the final result never is.
	Buffer int
}

// Run generates job synchronously.
func (r *Runner) Run(ctx context.Context, job Job) (*graph.Graph, error) {
	return r.run(ctx, job, nil)
}

// Submit starts job in a goroutine and streams its results. The channel
// is closed after the final result, so a reader that stops early does not
// leak the goroutine.
func (r *Runner) Submit(ctx context.Context, job Job) <-chan Result {
	buffer := max(r.Buffer, 0)
	ch := make(chan Result, buffer+1)
	go func() {
		defer close(ch)
		g, err := r.run(ctx, job, func(p *graph.Graph, iter int) {
			// The last slot is reserved for the final result. This
			// goroutine is the only sender, so len cannot grow behind it.
			if len(ch) >= buffer {
				return
			}
			ch <- Result{Job: job.Name, Graph: p.Clone(), Partial: true, Iteration: iter}
		})
		ch <- Result{Job: job.Name, Graph: g, Err: err}
	}()
	return ch
}

func (r *Runner) run(ctx context.Context, job Job, progress func(*graph.Graph, int)) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case job.LSystem != nil:
		return r.lsystem(ctx, job)
	case job.Colonize != nil:
		return r.colonize(ctx, job, progress)
	}
	return nil, ErrEmptyJob
}

func (r *Runner) lsystem(ctx context.Context, job Job) (*graph.Graph, error) {
	gr, err := job.LSystem.Grammar()
	if err != nil {
		return nil, err
	}
	symbols := gr.Generate(job.LSystem.EngineOptions()...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := turtle.New(turtle.FromGrammar(gr.Params), random.New(gr.Params.Seed)).Interpret(symbols, graph.Vec2{})
	arbor.Logger().Info("grow: lsystem done", "job", job.Name, "grammar", gr.Name, "symbols", len(symbols), "nodes", g.Len())
	return g, nil
}

func (r *Runner) colonize(ctx context.Context, job Job, progress func(*graph.Graph, int)) (*graph.Graph, error) {
	s, err := job.Colonize.Solver()
	if err != nil {
		return nil, err
	}
	if r.Pool != nil {
		s.WithPool(r.Pool)
	}
	if progress != nil {
		s.OnProgress(progress)
	}
	g, err := s.Run(ctx)
	st := s.Stats()
	arbor.Logger().Debug("grow: colonize done", "job", job.Name, "iterations", st.Iterations, "reason", st.Reason, "nodes", g.Len())
	return g, err
}

// RunAll generates jobs with at most limit running at once (limit <= 0
// means no bound). Graphs are returned in job order. The first failure
// cancels the rest; graphs of jobs that finished are still returned.
func (r *Runner) RunAll(ctx context.Context, jobs []Job, limit int) ([]*graph.Graph, error) {
	out := make([]*graph.Graph, len(jobs))
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, job := range jobs {
		eg.Go(func() error {
			g, err := r.Run(ctx, job)
			out[i] = g
			if err != nil {
				return fmt.Errorf("grow: job %q: %w", job.Name, err)
			}
			return nil
		})
	}
	return out, eg.Wait()
}
