package builtin

import (
	"context"
	"encoding/binary"
	"math"

	"dataclean/internal/dataset"
	"dataclean/internal/transformer"

	"github.com/zeebo/xxh3"
)

// ResolveDuplicates removes rows that repeat an earlier row on the comparison
// columns, keeping the first occurrence. The comparison columns are the
// configured Keys that exist in the dataset, or every column when no Keys are
// configured. Two missing cells compare equal.
//
// The duplicate count is stored in Env.Stats whether or not any were found.
type ResolveDuplicates struct {
	Keys []string
}

func (ResolveDuplicates) Name() string { return "resolve_duplicates" }

func (d ResolveDuplicates) Apply(_ context.Context, env *transformer.Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if ds.Rows() == 0 {
		return ds, nil
	}

	var cols []*dataset.Column
	if len(d.Keys) == 0 {
		cols = ds.Columns()
	} else {
		seen := make(map[string]bool, len(d.Keys))
		for _, k := range d.Keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			if c := ds.Column(k); c != nil {
				cols = append(cols, c)
			}
		}
		if len(cols) == 0 {
			env.Audit.Append("No valid columns for duplicate detection")
			return ds, nil
		}
	}

	keep := DuplicateMask(cols, ds.Rows())
	dups := 0
	for _, k := range keep {
		if !k {
			dups++
		}
	}
	if env.Stats != nil {
		env.Stats.DuplicateCount = dups
	}
	if dups == 0 {
		return ds, nil
	}
	env.Audit.Appendf("Found %d duplicate rows", dups)
	if _, err := ds.KeepRows(keep); err != nil {
		return nil, err
	}
	return ds, nil
}

// DuplicateMask returns, per row, whether the row is the first occurrence of
// its values across cols. Rows are bucketed by an xxh3 hash of their key and
// compared cell by cell within a bucket.
func DuplicateMask(cols []*dataset.Column, rows int) []bool {
	keep := make([]bool, rows)
	buckets := make(map[uint64][]int, rows)
	var buf []byte
	for r := 0; r < rows; r++ {
		buf = buf[:0]
		for _, c := range cols {
			buf = appendKey(buf, c.Cells[r])
		}
		h := xxh3.Hash(buf)
		dup := false
		for _, prev := range buckets[h] {
			if sameRow(cols, prev, r) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		keep[r] = true
		buckets[h] = append(buckets[h], r)
	}
	return keep
}

func sameRow(cols []*dataset.Column, a, b int) bool {
	for _, c := range cols {
		if !c.Cells[a].Equal(c.Cells[b]) {
			return false
		}
	}
	return true
}

// appendKey encodes a cell so that equal cells produce equal bytes.
func appendKey(dst []byte, c dataset.Cell) []byte {
	if c.IsMissing() {
		return append(dst, 0xff)
	}
	dst = append(dst, byte(c.Kind()))
	switch c.Kind() {
	case dataset.KindNumeric:
		f := c.Float()
		if f == 0 {
			f = 0 // fold -0
		}
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
	case dataset.KindDate:
		t := c.Time()
		dst = binary.LittleEndian.AppendUint64(dst, uint64(t.Unix()))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(t.Nanosecond()))
	case dataset.KindBool:
		if c.Truth() {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	default:
		s := c.Str()
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)))
		dst = append(dst, s...)
	}
	return dst
}
