package builtin

import (
	"context"
	"strings"

	"dataclean/internal/dataset"
	"dataclean/internal/transformer"
)

// Plausible age range, inclusive.
const (
	MinAge = 0
	MaxAge = 120
)

// CorrectAnomalies runs three independent plausibility checks:
//
//   - age: the "age" column is coerced to numeric and values outside
//     [MinAge, MaxAge] become missing
//   - future dates: date columns named like "date" or "dob" lose values later
//     than the processing time
//   - mixed types: a text column where more than half of all rows parse as
//     numbers becomes numeric; a lower, non-zero rate is reported
//
// A failing check is audited and the others still run.
type CorrectAnomalies struct{}

func (CorrectAnomalies) Name() string { return "correct_anomalies" }

func (CorrectAnomalies) Apply(ctx context.Context, env *transformer.Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if ds.Rows() == 0 {
		return ds, nil
	}
	if err := correctAge(env, ds); err != nil {
		env.Audit.Appendf("Age validation failed: %v", err)
	}
	correctFutureDates(env, ds)
	if err := coerceMixed(ctx, env, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func correctAge(env *transformer.Env, ds *dataset.Dataset) error {
	i := ds.Index("age")
	if i < 0 {
		return nil
	}
	col, _, err := CoerceNumeric(ds.Columns()[i])
	if err != nil {
		return err
	}
	if col == ds.Columns()[i] {
		col = col.Clone()
	}
	invalid := 0
	for r, c := range col.Cells {
		if c.IsMissing() {
			continue
		}
		if v := c.Float(); v < MinAge || v > MaxAge {
			col.Cells[r] = dataset.Missing()
			invalid++
		}
	}
	if err := ds.ReplaceColumn(i, col); err != nil {
		return err
	}
	if invalid > 0 {
		env.Audit.Appendf("Found %d rows with invalid age values", invalid)
	}
	return nil
}

func correctFutureDates(env *transformer.Env, ds *dataset.Dataset) {
	now := env.Clock()
	for _, col := range ds.Columns() {
		if col.Kind != dataset.KindDate {
			continue
		}
		if !strings.Contains(col.Name, "date") && !strings.Contains(col.Name, "dob") {
			continue
		}
		future := 0
		for r, c := range col.Cells {
			if !c.IsMissing() && c.Time().After(now) {
				col.Cells[r] = dataset.Missing()
				future++
			}
		}
		if future > 0 {
			env.Audit.Appendf("Found %d rows with future dates in column '%s'", future, col.Name)
		}
	}
}

type mixedResult struct {
	col       *dataset.Column
	converted int
}

func coerceMixed(ctx context.Context, env *transformer.Env, ds *dataset.Dataset) error {
	cols := ds.Columns()
	var targets []int
	for i, c := range cols {
		if c.Kind == dataset.KindText {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	results, err := transformer.EachColumn(ctx, env.Parallelism(), targets, func(_ context.Context, i int) mixedResult {
		col, n, _ := CoerceNumeric(cols[i])
		return mixedResult{col: col, converted: n}
	})
	if err != nil {
		return err
	}

	rows := float64(ds.Rows())
	for n, i := range targets {
		r := results[n]
		if r.converted == 0 {
			continue
		}
		rate := float64(r.converted) / rows
		if rate > 0.5 {
			if err := ds.ReplaceColumn(i, r.col); err != nil {
				env.Audit.Appendf("Type conversion failed for %s: %v", cols[i].Name, err)
			}
			continue
		}
		env.Audit.Appendf("Column '%s' contains mixed types (only %.1f%% numeric)", cols[i].Name, rate*100)
	}
	return nil
}
