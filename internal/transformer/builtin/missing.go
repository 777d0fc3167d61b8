package builtin

import (
	"context"
	"sort"
	"strings"

	"dataclean/internal/dataset"
	"dataclean/internal/transformer"
)

// unknownFill is the fill value for categorical columns with nothing to take
// a mode from.
const unknownFill = "unknown"

// ResolveMissing handles missing cells in two passes.
//
// First every column with strictly more than half of its cells missing is
// dropped. Then each remaining column with gaps is handled by kind: numeric
// columns take the median of their present values, date columns drop the
// affected rows from the whole dataset, and everything else takes the most
// frequent value (or "unknown"). Missing fractions are not recomputed after
// row drops.
type ResolveMissing struct{}

func (ResolveMissing) Name() string { return "resolve_missing" }

func (ResolveMissing) Apply(_ context.Context, env *transformer.Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	rows := ds.Rows()
	if rows == 0 {
		return ds, nil
	}

	var sparse []string
	for _, c := range ds.Columns() {
		if c.MissingCount()*2 > rows {
			sparse = append(sparse, c.Name)
		}
	}
	if len(sparse) > 0 {
		ds.DropColumns(sparse...)
		env.Audit.Appendf("Dropped columns with >50%% missing values: %s", strings.Join(sparse, ", "))
	}

	// DropColumns and KeepRows keep column identity, so the slice stays valid.
	for i, col := range ds.Columns() {
		if !col.HasMissing() {
			continue
		}
		switch col.Kind {
		case dataset.KindNumeric:
			med, ok := median(col)
			if !ok {
				env.Audit.Appendf("Could not impute numeric column '%s': no values present", col.Name)
				continue
			}
			fill(col, dataset.Num(med))
			env.Audit.Appendf("Imputed numeric column '%s' with median: %s", col.Name, dataset.FormatFloat(med))

		case dataset.KindDate:
			keep := make([]bool, len(col.Cells))
			for r, c := range col.Cells {
				keep[r] = !c.IsMissing()
			}
			dropped, err := ds.KeepRows(keep)
			if err != nil {
				return nil, err
			}
			if dropped > 0 {
				env.Audit.Appendf("Dropped %d rows with missing dates in column '%s'", dropped, col.Name)
			}

		default:
			m, ok := mode(col)
			if !ok {
				col = asText(col)
				if err := ds.ReplaceColumn(i, col); err != nil {
					return nil, err
				}
				m = dataset.Text(unknownFill)
			}
			fill(col, m)
			env.Audit.Appendf("Imputed categorical column '%s' with mode: %s", col.Name, m.String(col.Layout))
		}
	}
	return ds, nil
}

func fill(col *dataset.Column, v dataset.Cell) {
	for i, c := range col.Cells {
		if c.IsMissing() {
			col.Cells[i] = v
		}
	}
}

// median returns the median of the present values.
func median(col *dataset.Column) (float64, bool) {
	vals := make([]float64, 0, len(col.Cells))
	for _, c := range col.Cells {
		if !c.IsMissing() {
			vals = append(vals, c.Float())
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}

// mode returns the most frequent present value. Ties go to the value with
// the smallest string form.
func mode(col *dataset.Column) (dataset.Cell, bool) {
	counts := make(map[string]int)
	first := make(map[string]dataset.Cell)
	for _, c := range col.Cells {
		if c.IsMissing() {
			continue
		}
		k := c.String(col.Layout)
		if _, ok := first[k]; !ok {
			first[k] = c
		}
		counts[k]++
	}
	if len(counts) == 0 {
		return dataset.Cell{}, false
	}
	best, bestN := "", -1
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return first[best], true
}

// asText converts a column to text, keeping missing cells missing.
func asText(col *dataset.Column) *dataset.Column {
	if col.Kind == dataset.KindText {
		return col
	}
	cells := make([]dataset.Cell, len(col.Cells))
	for i, c := range col.Cells {
		if c.IsMissing() {
			cells[i] = dataset.Missing()
			continue
		}
		cells[i] = dataset.Text(c.String(col.Layout))
	}
	return dataset.NewColumn(col.Name, dataset.KindText, cells...)
}
