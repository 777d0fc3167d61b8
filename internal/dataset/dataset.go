// Package dataset holds the in-memory columnar table that flows through the
// cleaning pipeline.
//
// A Dataset is an ordered list of named columns of equal length. Every column
// carries a Kind tag from a closed set (text, numeric, date, bool) and every
// cell may independently be missing. Stages branch on the Kind tag instead of
// inspecting values at runtime.
//
// Ownership passes linearly through the pipeline: a stage receives the
// Dataset, may mutate it in place, and hands it to the next stage. Code that
// needs an independent copy (custom rules, tests) calls Clone.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultDateLayout is the strftime format used when a date column has no
// explicit layout.
const DefaultDateLayout = "%Y-%m-%d"

var (
	// ErrRaggedColumns is returned when columns disagree on row count.
	ErrRaggedColumns = errors.New("dataset: columns have different lengths")
	// ErrUnknownColumn is returned when a named column does not exist.
	ErrUnknownColumn = errors.New("dataset: unknown column")
)

// Kind is the semantic type of a column.
type Kind uint8

const (
	KindText Kind = iota
	KindNumeric
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumeric:
		return "numeric"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Cell is a single value tagged with its kind. The zero Cell is an empty text
// value, not a missing one; use Missing for absent values.
type Cell struct {
	kind    Kind
	missing bool
	num     float64
	str     string
	t       time.Time
	b       bool
}

// Missing returns a cell in the missing state.
func Missing() Cell { return Cell{missing: true} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{kind: KindText, str: s} }

// Num returns a numeric cell.
func Num(f float64) Cell { return Cell{kind: KindNumeric, num: f} }

// Date returns a date cell.
func Date(t time.Time) Cell { return Cell{kind: KindDate, t: t} }

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{kind: KindBool, b: b} }

func (c Cell) IsMissing() bool { return c.missing }
func (c Cell) Kind() Kind      { return c.kind }
func (c Cell) Float() float64  { return c.num }
func (c Cell) Str() string     { return c.str }
func (c Cell) Time() time.Time { return c.t }
func (c Cell) Truth() bool     { return c.b }

// GoString keeps test failure output readable.
func (c Cell) GoString() string {
	if c.missing {
		return "dataset.Missing()"
	}
	return fmt.Sprintf("dataset.Cell{%s %q}", c.kind, c.String(""))
}

func (c Cell) withKind(k Kind) Cell {
	c.kind = k
	return c
}

// String renders the cell in its canonical textual form. Missing cells render
// as "". layout is the strftime format used for date cells; an empty layout
// means DefaultDateLayout.
func (c Cell) String(layout string) string {
	if c.missing {
		return ""
	}
	switch c.kind {
	case KindNumeric:
		return FormatFloat(c.num)
	case KindDate:
		if layout == "" {
			layout = DefaultDateLayout
		}
		return strftime.Format(layout, c.t)
	case KindBool:
		return strconv.FormatBool(c.b)
	default:
		return c.str
	}
}

// Value returns the cell as a plain Go value: nil, string, float64, bool or
// time.Time.
func (c Cell) Value() any {
	if c.missing {
		return nil
	}
	switch c.kind {
	case KindNumeric:
		return c.num
	case KindDate:
		return c.t
	case KindBool:
		return c.b
	default:
		return c.str
	}
}

// Equal reports whether two cells hold the same value. Two missing cells are
// equal; a missing cell never equals a present one.
func (c Cell) Equal(o Cell) bool {
	if c.missing || o.missing {
		return c.missing == o.missing
	}
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindNumeric:
		return c.num == o.num
	case KindDate:
		return c.t.Equal(o.t)
	case KindBool:
		return c.b == o.b
	default:
		return c.str == o.str
	}
}

// FormatFloat prints f in its shortest round-trip form without an exponent
// for ordinary magnitudes ("1", "40.5").
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Column is a named, kind-tagged sequence of cells.
type Column struct {
	Name string
	Kind Kind
	// Layout is the strftime format date cells render with.
	Layout string
	Cells  []Cell
}

// NewColumn builds a column; every non-missing cell is re-tagged with kind.
func NewColumn(name string, kind Kind, cells ...Cell) *Column {
	col := &Column{Name: name, Kind: kind, Cells: make([]Cell, len(cells))}
	for i, c := range cells {
		if c.missing {
			col.Cells[i] = Missing()
			continue
		}
		col.Cells[i] = c.withKind(kind)
	}
	if kind == KindDate {
		col.Layout = DefaultDateLayout
	}
	return col
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Cells) }

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.missing {
			n++
		}
	}
	return n
}

// HasMissing reports whether at least one cell is missing.
func (c *Column) HasMissing() bool {
	for _, cell := range c.Cells {
		if cell.missing {
			return true
		}
	}
	return false
}

// Text renders cell i with the column layout.
func (c *Column) Text(i int) string { return c.Cells[i].String(c.Layout) }

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	cp := *c
	cp.Cells = append([]Cell(nil), c.Cells...)
	return &cp
}

// Dataset is an ordered sequence of equal-length columns.
type Dataset struct {
	cols []*Column
}

// New builds a Dataset from columns. It fails when the columns disagree on
// row count.
func New(cols ...*Column) (*Dataset, error) {
	d := &Dataset{cols: cols}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(cols ...*Column) *Dataset {
	d, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return d
}

// Validate checks the structural invariants: no nil columns and a single
// shared row count.
func (d *Dataset) Validate() error {
	if d == nil {
		return errors.New("dataset: nil dataset")
	}
	rows := -1
	for i, c := range d.cols {
		if c == nil {
			return fmt.Errorf("dataset: column %d is nil", i)
		}
		if rows == -1 {
			rows = len(c.Cells)
			continue
		}
		if len(c.Cells) != rows {
			return fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, c.Name, len(c.Cells), rows)
		}
	}
	return nil
}

// Rows returns the shared row count (0 for a dataset without columns).
func (d *Dataset) Rows() int {
	if len(d.cols) == 0 {
		return 0
	}
	return len(d.cols[0].Cells)
}

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.cols) }

// Columns returns the columns in order. The slice is owned by the dataset.
func (d *Dataset) Columns() []*Column { return d.cols }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the first column named name, or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the first column named name, or nil.
func (d *Dataset) Column(name string) *Column {
	if i := d.Index(name); i >= 0 {
		return d.cols[i]
	}
	return nil
}

// Has reports whether a column named name exists.
func (d *Dataset) Has(name string) bool { return d.Index(name) >= 0 }

// ReplaceColumn replaces the column at position i.
func (d *Dataset) ReplaceColumn(i int, col *Column) error {
	if i < 0 || i >= len(d.cols) {
		return fmt.Errorf("dataset: column index %d out of range", i)
	}
	if col == nil || len(col.Cells) != d.Rows() {
		return fmt.Errorf("%w: replacement for %q", ErrRaggedColumns, d.cols[i].Name)
	}
	d.cols[i] = col
	return nil
}

// Append adds a column at the end.
func (d *Dataset) Append(col *Column) error {
	if len(d.cols) > 0 && len(col.Cells) != d.Rows() {
		return fmt.Errorf("%w: appended %q has %d rows, want %d", ErrRaggedColumns, col.Name, len(col.Cells), d.Rows())
	}
	d.cols = append(d.cols, col)
	return nil
}

// DropColumns removes every column whose name is listed.
func (d *Dataset) DropColumns(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := d.cols[:0]
	for _, c := range d.cols {
		if _, ok := drop[c.Name]; !ok {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(d.cols); i++ {
		d.cols[i] = nil
	}
	d.cols = kept
}

// KeepRows retains the rows whose mask entry is true, preserving order, and
// returns the number of rows removed.
func (d *Dataset) KeepRows(keep []bool) (int, error) {
	if len(keep) != d.Rows() {
		return 0, fmt.Errorf("dataset: row mask has %d entries, want %d", len(keep), d.Rows())
	}
	removed := 0
	for _, k := range keep {
		if !k {
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	for _, c := range d.cols {
		out := make([]Cell, 0, len(c.Cells)-removed)
		for i, cell := range c.Cells {
			if keep[i] {
				out = append(out, cell)
			}
		}
		c.Cells = out
	}
	return removed, nil
}

// Row returns the cells of row i in column order.
func (d *Dataset) Row(i int) []Cell {
	out := make([]Cell, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.Cells[i]
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{cols: make([]*Column, len(d.cols))}
	for i, c := range d.cols {
		cp.cols[i] = c.Clone()
	}
	return cp
}
