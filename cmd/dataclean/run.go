package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"dataclean/internal/config"
	"dataclean/internal/dataset"
	"dataclean/internal/export"
	"dataclean/internal/ingest"
	"dataclean/internal/metrics"
	"dataclean/internal/metrics/datadog"
	"dataclean/internal/metrics/prompush"
	"dataclean/internal/pipeline"
	"dataclean/internal/source"
	"dataclean/internal/storage"
	"dataclean/internal/transformer/rules"

	// register all backends with the storage factory.
	_ "dataclean/internal/storage/all"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// result summarizes one run for the CLI.
type result struct {
	Report  *pipeline.Report
	Files   []string
	Stored  int64
	Elapsed time.Duration
}

// runAndPrint runs once and prints a one-line summary to w.
func runAndPrint(ctx context.Context, p config.Pipeline, log *zap.Logger, w io.Writer) error {
	flush, err := setupMetrics(p, log)
	if err != nil {
		return err
	}
	defer flush()

	res, err := runOnce(ctx, p, log)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, summary(res))
	return nil
}

// runOnce loads, cleans, exports and optionally stores one input file.
func runOnce(ctx context.Context, p config.Pipeline, log *zap.Logger) (*result, error) {
	start := time.Now()

	src, err := source.New(p.Source, log)
	if err != nil {
		return nil, err
	}
	if p.Output.Name == "" {
		p.Output.Name = baseName(src.Name())
	}
	opt := ingest.FromConfig(p.Parser)
	opt.Logger = log.Named("ingest")
	ds, err := ingest.FromSource(ctx, src, opt)
	if err != nil {
		return nil, err
	}
	loaded := time.Now()

	reg, err := buildRules(p.Clean.Rules)
	if err != nil {
		return nil, err
	}

	cleaner := pipeline.New(pipeline.Config{
		Job:           p.Job,
		PIIColumns:    p.Clean.PIIColumns,
		DuplicateKeys: p.Clean.DuplicateKeys,
		DateFormat:    p.Clean.DateFormat,
		Workers:       p.Clean.Workers,
		Rules:         reg,
	}, pipeline.WithLogger(log))

	cleaned, rep, err := cleaner.Clean(ctx, ds)
	if err != nil {
		return nil, err
	}
	rep.OriginalFile = src.Name()
	rep.LoadTime = &loaded

	files, err := export.Bundle(cleaned, rep, export.Options{
		Dir:           p.Output.Dir,
		Name:          p.Output.Name,
		Format:        p.Output.Format,
		IncludeReport: p.Output.IncludeReport,
		Zip:           p.Output.Zip,
		Logger:        log.Named("export"),
	})
	if err != nil {
		return nil, err
	}

	res := &result{Report: rep, Files: files}
	if p.Storage.Kind != "" {
		if res.Stored, err = store(ctx, p, cleaned, log); err != nil {
			return nil, err
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// store loads ds into the configured database table.
func store(ctx context.Context, p config.Pipeline, ds *dataset.Dataset, log *zap.Logger) (int64, error) {
	db := p.Storage.DB
	repo, err := storage.New(ctx, storage.Config{
		Kind:    p.Storage.Kind,
		DSN:     db.DSN,
		Table:   db.Table,
		Columns: db.Columns,
	})
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	return storage.WriteDataset(ctx, repo, ds, storage.WriteOptions{
		Kind:       p.Storage.Kind,
		Table:      db.Table,
		Columns:    db.Columns,
		BatchSize:  db.BatchSize,
		AutoCreate: db.AutoCreateTable,
		Job:        p.Job,
		Logger:     log,
	})
}

// buildRules compiles the configured script rules in order.
func buildRules(cfg []config.Rule) (*rules.Registry, error) {
	reg := rules.NewRegistry()
	for _, r := range cfg {
		var (
			s   *rules.Script
			err error
		)
		if r.Path != "" {
			s, err = rules.LoadScript(r.Name, r.Path)
		} else {
			s, err = rules.NewScript(r.Name, r.Script)
		}
		if err != nil {
			return nil, err
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// setupMetrics installs the configured backend. The returned function
// flushes it and must always be called.
func setupMetrics(p config.Pipeline, log *zap.Logger) (func(), error) {
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}
	switch p.Metrics.Backend {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}, nil
	case "pushgateway":
		b, err := prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", zap.String("backend", "pushgateway"), zap.String("url", p.Metrics.PushgatewayURL))
		return flush, nil
	case "datadog":
		addr := p.Metrics.DatadogAddr
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "dataclean.", GlobalTags: []string{"job:" + p.Job}})
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled", zap.String("backend", "datadog"), zap.String("addr", addr))
		return func() {
			flush()
			_ = b.Close()
		}, nil
	default:
		return nil, fmt.Errorf("metrics: unknown backend %q", p.Metrics.Backend)
	}
}

// summary renders a run as one human-readable line.
func summary(res *result) string {
	rep := res.Report
	s := fmt.Sprintf("%s: %s → %s rows, %d → %d columns, %s duplicates removed, %s warnings",
		rep.Job,
		humanize.Comma(int64(rep.OriginalRows)), humanize.Comma(int64(rep.FinalRows)),
		rep.OriginalColumns, rep.FinalColumns,
		humanize.Comma(int64(rep.DuplicateCount)), humanize.Comma(int64(rep.WarningsCount)),
	)
	if res.Stored > 0 {
		s += fmt.Sprintf(", %s rows stored", humanize.Comma(res.Stored))
	}
	if res.Elapsed > 0 {
		s += fmt.Sprintf(" in %s", res.Elapsed.Truncate(time.Millisecond))
	}
	return s
}
