// Package pipeline wires the built-in cleaning stages and the custom rule
// registry into one fixed-order run and produces the run Report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"dataclean/internal/audit"
	"dataclean/internal/dataset"
	"dataclean/internal/metrics"
	"dataclean/internal/transformer"
	"dataclean/internal/transformer/builtin"
	"dataclean/internal/transformer/rules"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config is fixed for the duration of a run.
type Config struct {
	Job           string
	PIIColumns    []string
	DuplicateKeys []string
	// DateFormat is the strftime layout dates are rendered with.
	DateFormat string
	Workers    int
	Rules      *rules.Registry
}

// Cleaner runs the cleaning stages.
type Cleaner struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger used by the cleaner and every stage.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cleaner) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the processing time used for audit timestamps and the
// future-date check.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Cleaner for cfg.
func New(cfg Config, opts ...Option) *Cleaner {
	if cfg.DateFormat == "" {
		cfg.DateFormat = dataset.DefaultDateLayout
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	c := &Cleaner{cfg: cfg, logger: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.Named("pipeline")
	return c
}

// Stages returns the stages in the order they run. The order matters: names
// are normalized before any name-based detection, and masking runs after
// sanitizing and de-duplication.
func (c *Cleaner) Stages() transformer.Chain {
	return transformer.Chain{
		builtin.NormalizeColumns{},
		builtin.SanitizeStrings{},
		builtin.StandardizeDates{Format: c.cfg.DateFormat},
		builtin.ResolveMissing{},
		builtin.ResolveDuplicates{Keys: c.cfg.DuplicateKeys},
		builtin.MaskPII{Columns: c.cfg.PIIColumns},
		builtin.CorrectAnomalies{},
		c.cfg.Rules.Stage(),
	}
}

// Clean runs every stage over ds and returns the cleaned dataset with its
// report. Clean takes ownership of ds. Only an invalid input or a cancelled
// context is returned as an error; stage failures end up in the report's
// warnings.
func (c *Cleaner) Clean(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, *Report, error) {
	if ds == nil {
		return nil, nil, errors.New("pipeline: nil dataset")
	}
	if err := ds.Validate(); err != nil {
		return nil, nil, fmt.Errorf("pipeline: invalid input: %w", err)
	}

	runID := uuid.NewString()
	log := c.logger.With(zap.String("run_id", runID), zap.String("job", c.cfg.Job))
	env := &transformer.Env{
		Job:     c.cfg.Job,
		Audit:   audit.New(audit.WithClock(c.now), audit.WithLogger(log)),
		Stats:   &transformer.Stats{},
		Now:     c.now,
		Logger:  log.Named("stage"),
		Workers: c.cfg.Workers,
	}

	rep := &Report{
		RunID:           runID,
		Job:             c.cfg.Job,
		StartedAt:       c.now(),
		OriginalRows:    ds.Rows(),
		OriginalColumns: ds.Width(),
	}
	before := ds.Names()
	metrics.RecordRow(c.cfg.Job, "input", int64(ds.Rows()))
	log.Info("clean started", zap.Int("rows", ds.Rows()), zap.Int("columns", ds.Width()))

	out, err := c.Stages().Apply(ctx, env, ds)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: %w", err)
	}

	rep.finish(out, before, env)
	rep.FinishedAt = c.now()

	metrics.RecordRow(c.cfg.Job, "output", int64(rep.FinalRows))
	metrics.RecordRow(c.cfg.Job, "duplicates", int64(rep.DuplicateCount))
	metrics.RecordRow(c.cfg.Job, "warnings", int64(rep.WarningsCount))
	log.Info("clean finished",
		zap.Int("rows", rep.FinalRows),
		zap.Int("columns", rep.FinalColumns),
		zap.Int("warnings", rep.WarningsCount),
		zap.Int("duplicates", rep.DuplicateCount),
	)
	return out, rep, nil
}
