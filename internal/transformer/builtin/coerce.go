package builtin

import (
	"fmt"
	"math"
	"strings"

	"dataclean/internal/dataset"

	"github.com/spf13/cast"
)

// ToNumber parses a trimmed text value as a finite number. Empty strings,
// NaN and infinities are rejected.
func ToNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CoerceNumeric converts a column to numeric. Cells that do not convert
// become missing; converted reports how many present cells did. Date columns
// cannot be coerced.
func CoerceNumeric(col *dataset.Column) (out *dataset.Column, converted int, err error) {
	switch col.Kind {
	case dataset.KindNumeric:
		return col, len(col.Cells) - col.MissingCount(), nil
	case dataset.KindDate:
		return nil, 0, fmt.Errorf("column %q holds dates, not numbers", col.Name)
	}

	cells := make([]dataset.Cell, len(col.Cells))
	for i, c := range col.Cells {
		if c.IsMissing() {
			cells[i] = dataset.Missing()
			continue
		}
		var (
			f  float64
			ok bool
		)
		if c.Kind() == dataset.KindBool {
			f, ok = cast.ToFloat64(c.Truth()), true
		} else {
			f, ok = ToNumber(c.Str())
		}
		if !ok {
			cells[i] = dataset.Missing()
			continue
		}
		cells[i] = dataset.Num(f)
		converted++
	}
	return dataset.NewColumn(col.Name, dataset.KindNumeric, cells...), converted, nil
}
