package ingest

import (
	"math"
	"strings"

	"dataclean/internal/dataset"

	"github.com/spf13/cast"
)

// inferColumn types a column of raw text: numeric when every present value
// is a finite number, bool when every present value is true or false, text
// otherwise. A column without present values is text.
func inferColumn(name string, raw []string, missing []bool) *dataset.Column {
	kind := inferKind(raw, missing)
	cells := make([]dataset.Cell, len(raw))
	for i, s := range raw {
		if missing[i] {
			cells[i] = dataset.Missing()
			continue
		}
		switch kind {
		case dataset.KindNumeric:
			f, _ := number(s)
			cells[i] = dataset.Num(f)
		case dataset.KindBool:
			cells[i] = dataset.Bool(strings.EqualFold(strings.TrimSpace(s), "true"))
		default:
			cells[i] = dataset.Text(s)
		}
	}
	return dataset.NewColumn(name, kind, cells...)
}

func inferKind(raw []string, missing []bool) dataset.Kind {
	numeric, boolean, present := true, true, false
	for i, s := range raw {
		if missing[i] {
			continue
		}
		present = true
		if numeric {
			_, numeric = number(s)
		}
		if boolean {
			boolean = isBool(s)
		}
		if !numeric && !boolean {
			return dataset.KindText
		}
	}
	switch {
	case !present:
		return dataset.KindText
	case numeric:
		return dataset.KindNumeric
	case boolean:
		return dataset.KindBool
	}
	return dataset.KindText
}

func number(s string) (float64, bool) {
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

func isBool(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}
