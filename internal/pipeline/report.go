package pipeline

import (
	"math"
	"slices"
	"sort"
	"time"

	"dataclean/internal/audit"
	"dataclean/internal/dataset"
	"dataclean/internal/transformer"
)

// Report summarizes one run.
type Report struct {
	RunID           string                    `json:"run_id"`
	Job             string                    `json:"job,omitempty"`
	OriginalFile    string                    `json:"original_file,omitempty"`
	LoadTime        *time.Time                `json:"load_time,omitempty"`
	StartedAt       time.Time                 `json:"started_at"`
	FinishedAt      time.Time                 `json:"finished_at"`
	OriginalRows    int                       `json:"original_rows"`
	OriginalColumns int                       `json:"original_columns"`
	FinalRows       int                       `json:"final_rows"`
	FinalColumns    int                       `json:"final_columns"`
	ColumnChanges   ColumnChangeReport        `json:"column_changes"`
	Warnings        []audit.Event             `json:"warnings"`
	WarningsCount   int                       `json:"warnings_count"`
	DuplicateCount  int                       `json:"duplicate_count"`
	MaskedColumns   []string                  `json:"masked_columns,omitempty"`
	Columns         []ColumnProfile           `json:"columns"`
	NumericStats    map[string]NumericSummary `json:"numeric_stats,omitempty"`
	SampleData      []map[string]any          `json:"sample_data"`
}

// SampleRows is the number of cleaned rows copied into a report.
const SampleRows = 5

// ColumnChangeReport diffs the column names before and after a run.
type ColumnChangeReport struct {
	OriginalColumns []string `json:"original_columns"`
	FinalColumns    []string `json:"final_columns"`
	Added           []string `json:"added"`
	Removed         []string `json:"removed"`
}

// ColumnProfile describes one column of the cleaned dataset.
type ColumnProfile struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
}

// NumericSummary is the describe() view of a numeric column. Std is the
// sample standard deviation, zero for a single value; quantiles interpolate
// linearly.
type NumericSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	Max   float64 `json:"max"`
}

func (r *Report) finish(out *dataset.Dataset, before []string, env *transformer.Env) {
	after := out.Names()
	r.FinalRows = out.Rows()
	r.FinalColumns = out.Width()
	r.ColumnChanges = DiffColumns(before, after)
	r.Warnings = env.Audit.Events()
	r.WarningsCount = len(r.Warnings)
	r.DuplicateCount = env.Stats.DuplicateCount
	r.MaskedColumns = append([]string(nil), env.Stats.MaskedColumns...)

	r.Columns = make([]ColumnProfile, 0, out.Width())
	for _, c := range out.Columns() {
		r.Columns = append(r.Columns, Profile(c))
		if c.Kind != dataset.KindNumeric {
			continue
		}
		if s, ok := Summarize(c); ok {
			if r.NumericStats == nil {
				r.NumericStats = make(map[string]NumericSummary)
			}
			r.NumericStats[c.Name] = s
		}
	}
	r.SampleData = Sample(out, SampleRows)
}

// Sample returns up to n leading rows keyed by column name. Dates are
// rendered in their column layout; missing cells are nil.
func Sample(ds *dataset.Dataset, n int) []map[string]any {
	n = min(n, ds.Rows())
	rows := make([]map[string]any, n)
	cols := ds.Columns()
	for i := range rows {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			cell := c.Cells[i]
			switch {
			case cell.IsMissing():
				row[c.Name] = nil
			case cell.Kind() == dataset.KindNumeric:
				row[c.Name] = cell.Float()
			case cell.Kind() == dataset.KindBool:
				row[c.Name] = cell.Truth()
			default:
				row[c.Name] = cell.String(c.Layout)
			}
		}
		rows[i] = row
	}
	return rows
}

// DiffColumns compares two column name lists. Added and Removed are sorted.
func DiffColumns(before, after []string) ColumnChangeReport {
	in := make(map[string]bool, len(before))
	for _, n := range before {
		in[n] = true
	}
	out := make(map[string]bool, len(after))
	for _, n := range after {
		out[n] = true
	}
	rep := ColumnChangeReport{
		OriginalColumns: append([]string{}, before...),
		FinalColumns:    append([]string{}, after...),
		Added:           []string{},
		Removed:         []string{},
	}
	for n := range out {
		if !in[n] {
			rep.Added = append(rep.Added, n)
		}
	}
	for n := range in {
		if !out[n] {
			rep.Removed = append(rep.Removed, n)
		}
	}
	sort.Strings(rep.Added)
	sort.Strings(rep.Removed)
	return rep
}

// Profile counts missing and distinct present values of c.
func Profile(c *dataset.Column) ColumnProfile {
	seen := make(map[string]struct{})
	missing := 0
	for _, cell := range c.Cells {
		if cell.IsMissing() {
			missing++
			continue
		}
		seen[cell.String(c.Layout)] = struct{}{}
	}
	return ColumnProfile{Name: c.Name, Kind: c.Kind.String(), Missing: missing, Unique: len(seen)}
}

// Summarize reports false for columns without present values.
func Summarize(c *dataset.Column) (NumericSummary, bool) {
	vals := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if !cell.IsMissing() {
			vals = append(vals, cell.Float())
		}
	}
	if len(vals) == 0 {
		return NumericSummary{}, false
	}
	slices.Sort(vals)

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var std float64
	if len(vals) > 1 {
		var ss float64
		for _, v := range vals {
			ss += (v - mean) * (v - mean)
		}
		std = math.Sqrt(ss / float64(len(vals)-1))
	}
	return NumericSummary{
		Count: len(vals),
		Mean:  mean,
		Std:   std,
		Min:   vals[0],
		P25:   quantile(vals, 0.25),
		P50:   quantile(vals, 0.5),
		P75:   quantile(vals, 0.75),
		Max:   vals[len(vals)-1],
	}, true
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
