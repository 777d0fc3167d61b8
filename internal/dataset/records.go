package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cast"
)

// Record is one row keyed by column name. It is the shape script rules and
// row-oriented sinks work with.
type Record = map[string]any

// Lookup returns the column named name or ErrUnknownColumn.
func (d *Dataset) Lookup(name string) (*Column, error) {
	if c := d.Column(name); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Records converts the dataset to one map per row. Missing cells map to nil;
// the other kinds map to string, float64, bool and time.Time.
func (d *Dataset) Records() []Record {
	out := make([]Record, d.Rows())
	for i := range out {
		rec := make(Record, len(d.cols))
		for _, c := range d.cols {
			rec[c.Name] = c.Cells[i].Value()
		}
		out[i] = rec
	}
	return out
}

// Values returns row i as a positional slice, in column order.
func (d *Dataset) Values(i int) []any {
	out := make([]any, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.Cells[i].Value()
	}
	return out
}

// FromRecords builds a dataset from row maps. Columns listed in order come
// first (when at least one record carries them, or when recs is empty); any
// other keys follow in sorted order. A key absent from a record is missing in
// that row.
//
// Column kinds are inferred from the Go values: numbers become numeric,
// strings text, bools bool, time.Time date. A column mixing kinds falls back
// to text with every value rendered through Cell.String.
func FromRecords(order []string, recs []Record) (*Dataset, error) {
	names := recordColumns(order, recs)
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		cells := make([]Cell, len(recs))
		for i, rec := range recs {
			c, err := cellOf(rec[name])
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d column %q: %w", i, name, err)
			}
			cells[i] = c
		}
		cols = append(cols, unify(name, cells))
	}
	return New(cols...)
}

func recordColumns(order []string, recs []Record) []string {
	seen := make(map[string]bool)
	for _, rec := range recs {
		for k := range rec {
			seen[k] = true
		}
	}
	var names []string
	placed := make(map[string]bool, len(order))
	for _, n := range order {
		if placed[n] {
			continue
		}
		if len(recs) == 0 || seen[n] {
			names = append(names, n)
			placed[n] = true
		}
	}
	var rest []string
	for k := range seen {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func cellOf(v any) (Cell, error) {
	switch x := v.(type) {
	case nil:
		return Missing(), nil
	case Cell:
		return x, nil
	case string:
		return Text(x), nil
	case bool:
		return Bool(x), nil
	case time.Time:
		return Date(x), nil
	case *time.Time:
		if x == nil {
			return Missing(), nil
		}
		return Date(*x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Text(x.String()), nil
		}
		return Num(f), nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return Cell{}, err
		}
		return Num(f), nil
	default:
		return Cell{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// unify picks the column kind from its present cells. Mixed kinds degrade to
// text.
func unify(name string, cells []Cell) *Column {
	kind, first := KindText, true
	mixed := false
	for _, c := range cells {
		if c.missing {
			continue
		}
		if first {
			kind, first = c.kind, false
			continue
		}
		if c.kind != kind {
			mixed = true
			break
		}
	}
	if !mixed {
		return NewColumn(name, kind, cells...)
	}
	text := make([]Cell, len(cells))
	for i, c := range cells {
		if c.missing {
			text[i] = Missing()
			continue
		}
		text[i] = Text(c.String(""))
	}
	return NewColumn(name, KindText, text...)
}
