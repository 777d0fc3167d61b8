package storage

import (
	"context"
	"fmt"

	"dataclean/internal/dataset"
	"dataclean/internal/metrics"

	"go.uber.org/zap"
)

// DefaultBatchSize is used when WriteOptions.BatchSize is zero.
const DefaultBatchSize = 1000

// WriteOptions controls WriteDataset.
type WriteOptions struct {
	// Kind selects the DDL dialect for AutoCreate.
	Kind  string
	Table string
	// Columns restricts and orders the written columns; empty means all.
	Columns    []string
	BatchSize  int
	AutoCreate bool
	Job        string
	Logger     *zap.Logger
}

// WriteDataset streams the rows of ds into repo in batches. Missing cells
// are written as NULL.
func WriteDataset(ctx context.Context, repo Repository, ds *dataset.Dataset, opt WriteOptions) (int64, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("storage").With(zap.String("table", opt.Table))

	sel, err := selectColumns(ds, opt.Columns)
	if err != nil {
		return 0, err
	}
	if opt.AutoCreate {
		if err := EnsureTable(ctx, opt.Kind, repo, opt.Table, sel); err != nil {
			return 0, fmt.Errorf("storage: ensure table: %w", err)
		}
	}
	batchSize := opt.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rows := make(chan []any, batchSize)
	go func() {
		defer close(rows)
		for i := 0; i < sel.Rows(); i++ {
			select {
			case rows <- sel.Values(i):
			case <-ctx.Done():
				return
			}
		}
	}()

	total, batches, err := LoadBatches(ctx, log, sel.Names(), rows, batchSize, repo.CopyFrom)
	metrics.RecordBatches(opt.Job, batches)
	metrics.RecordRow(opt.Job, "stored", total)
	if err != nil {
		return total, fmt.Errorf("storage: load %s: %w", opt.Table, err)
	}
	log.Info("dataset stored", zap.Int64("rows", total), zap.Int64("batches", batches))
	return total, nil
}

// selectColumns returns a dataset view holding only the named columns, in
// the given order. Cells are shared with ds.
func selectColumns(ds *dataset.Dataset, names []string) (*dataset.Dataset, error) {
	if len(names) == 0 {
		return ds, nil
	}
	cols := make([]*dataset.Column, 0, len(names))
	for _, n := range names {
		c, err := ds.Lookup(n)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		cols = append(cols, c)
	}
	return dataset.New(cols...)
}
