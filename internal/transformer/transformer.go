// Package transformer defines the Stage contract of the cleaning pipeline and
// the Chain that runs stages in order.
//
// A Stage receives the Dataset produced by its predecessor together with the
// per-run Env, and returns the Dataset for the next stage. Corrective actions
// are appended to Env.Audit; a returned error marks the whole stage as failed.
// A stage that returns an error must leave its input untouched so the Chain
// can continue with the pre-stage dataset.
package transformer

import (
	"context"
	"runtime"
	"time"

	"dataclean/internal/audit"
	"dataclean/internal/dataset"
	"dataclean/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage is one transformation over a dataset.
type Stage interface {
	Name() string
	Apply(ctx context.Context, env *Env, ds *dataset.Dataset) (*dataset.Dataset, error)
}

// Stats carries run-level figures that stages report outside the audit log.
type Stats struct {
	DuplicateCount int
	MaskedColumns  []string
}

// Env is the per-run context threaded through every stage.
type Env struct {
	Job     string
	Audit   *audit.Log
	Stats   *Stats
	Now     func() time.Time
	Logger  *zap.Logger
	Workers int
}

// NewEnv returns an Env with a fresh audit log, wall clock, no-op logger and
// one worker per CPU.
func NewEnv() *Env {
	return &Env{
		Audit:   audit.New(),
		Stats:   &Stats{},
		Now:     time.Now,
		Logger:  zap.NewNop(),
		Workers: runtime.GOMAXPROCS(0),
	}
}

// Clock returns the current processing time.
func (e *Env) Clock() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Log returns the stage logger, never nil.
func (e *Env) Log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Parallelism returns the worker limit for per-column work.
func (e *Env) Parallelism() int {
	if e.Workers < 1 {
		return 1
	}
	return e.Workers
}

// Chain is an ordered list of stages.
type Chain []Stage

// Apply runs every stage in order. A stage that fails (error or structurally
// invalid output) is recorded as "<stage> failed: <err>" and the chain
// continues with the dataset as it stood before that stage. Only context
// cancellation stops the chain early.
func (c Chain) Apply(ctx context.Context, env *Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	log := env.Log()
	for _, st := range c {
		if err := ctx.Err(); err != nil {
			return ds, err
		}
		start := time.Now()
		out, err := st.Apply(ctx, env, ds)
		if err == nil {
			err = out.Validate()
		}
		elapsed := time.Since(start)
		metrics.RecordStage(env.Job, st.Name(), err, elapsed)
		if err != nil {
			env.Audit.Appendf("%s failed: %v", st.Name(), err)
			log.Error("stage failed", zap.String("stage", st.Name()), zap.Error(err))
			continue
		}
		log.Debug("stage done",
			zap.String("stage", st.Name()),
			zap.Int("rows", out.Rows()),
			zap.Int("columns", out.Width()),
			zap.Duration("took", elapsed),
		)
		ds = out
	}
	return ds, nil
}

// EachColumn runs fn for every index in idx with at most workers goroutines
// and returns the results in the order of idx. fn must not touch shared
// dataset state; callers commit results sequentially afterwards so audit
// events keep column order.
func EachColumn[T any](ctx context.Context, workers int, idx []int, fn func(ctx context.Context, i int) T) ([]T, error) {
	out := make([]T, len(idx))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for n, i := range idx {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[n] = fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
