package builtin

import (
	"reflect"
	"testing"
	"time"

	"dataclean/internal/dataset"
)

func withMissing(cells []dataset.Cell, idx ...int) []dataset.Cell {
	for _, i := range idx {
		cells[i] = dataset.Missing()
	}
	return cells
}

/*
TestResolveMissing_Threshold verifies the strict >50% drop rule: 51 of 100
missing is dropped, exactly 50 of 100 is kept and imputed.
*/
func TestResolveMissing_Threshold(t *testing.T) {
	const rows = 100
	mk := func(missing int) []dataset.Cell {
		cells := make([]dataset.Cell, rows)
		for i := range cells {
			if i < missing {
				cells[i] = dataset.Missing()
			} else {
				cells[i] = dataset.Num(float64(i))
			}
		}
		return cells
	}
	env := testEnv()
	ds := dataset.MustNew(
		dataset.NewColumn("half", dataset.KindNumeric, mk(50)...),
		dataset.NewColumn("most", dataset.KindNumeric, mk(51)...),
		dataset.NewColumn("full", dataset.KindNumeric, mk(0)...),
	)
	out := apply(t, ResolveMissing{}, env, ds)

	wantStrings(t, "columns", out.Names(), []string{"half", "full"})
	if out.Column("half").HasMissing() {
		t.Fatalf("half column still has gaps")
	}
	// median of 50..99 is 74.5
	if got := out.Column("half").Cells[0].Float(); got != 74.5 {
		t.Fatalf("median fill = %v; want 74.5", got)
	}
	want := []string{
		"Dropped columns with >50% missing values: most",
		"Imputed numeric column 'half' with median: 74.5",
	}
	wantStrings(t, "audit", env.Audit.Messages(), want)
}

/*
TestResolveMissing_ByKind verifies median, mode and row-dropping imputation,
and that date row drops do not trigger recomputation of earlier decisions.
*/
func TestResolveMissing_ByKind(t *testing.T) {
	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	env := testEnv()
	ds := dataset.MustNew(
		dataset.NewColumn("age", dataset.KindNumeric, withMissing(nums(10, 20, 0, 40, 30), 2)...),
		dataset.NewColumn("visit_date", dataset.KindDate,
			dataset.Date(day), dataset.Missing(), dataset.Date(day), dataset.Date(day), dataset.Date(day)),
		dataset.NewColumn("city", dataset.KindText, withMissing(texts("b", "a", "b", "", "a"), 3)...),
	)
	out := apply(t, ResolveMissing{}, env, ds)

	if out.Rows() != 4 {
		t.Fatalf("rows = %d; want 4", out.Rows())
	}
	wantStrings(t, "age", rendered(out.Column("age")), []string{"10", "25", "40", "30"})
	wantStrings(t, "city", rendered(out.Column("city")), []string{"b", "b", "b", "a"})
	want := []string{
		"Imputed numeric column 'age' with median: 25",
		"Dropped 1 rows with missing dates in column 'visit_date'",
		"Imputed categorical column 'city' with mode: b",
	}
	wantStrings(t, "audit", env.Audit.Messages(), want)
}

/*
TestResolveMissing_ModeTieBreak verifies that equally frequent values resolve
to the smallest string form.
*/
func TestResolveMissing_ModeTieBreak(t *testing.T) {
	col := dataset.NewColumn("c", dataset.KindText, texts("zeta", "alpha", "zeta", "alpha")...)
	m, ok := mode(col)
	if !ok || m.Str() != "alpha" {
		t.Fatalf("mode = %#v, %v; want alpha", m, ok)
	}
}

/*
TestResolveMissing_BoolUnknown verifies that a bool column left with nothing to
take a mode from becomes text filled with "unknown".
*/
func TestResolveMissing_BoolUnknown(t *testing.T) {
	env := testEnv()
	ds := dataset.MustNew(
		dataset.NewColumn("dob", dataset.KindDate, dataset.Date(fixedNow), dataset.Missing()),
		dataset.NewColumn("flag", dataset.KindBool, dataset.Missing(), dataset.Bool(true)),
	)
	out := apply(t, ResolveMissing{}, env, ds)

	flag := out.Column("flag")
	if flag.Kind != dataset.KindText {
		t.Fatalf("flag kind = %s; want text", flag.Kind)
	}
	wantStrings(t, "flag", rendered(flag), []string{"unknown"})
	want := []string{
		"Dropped 1 rows with missing dates in column 'dob'",
		"Imputed categorical column 'flag' with mode: unknown",
	}
	wantStrings(t, "audit", env.Audit.Messages(), want)
}

/*
TestResolveMissing_EmptyDataset verifies the zero-row short circuit.
*/
func TestResolveMissing_EmptyDataset(t *testing.T) {
	env := testEnv()
	ds := dataset.MustNew(dataset.NewColumn("a", dataset.KindText))
	out := apply(t, ResolveMissing{}, env, ds)
	if !reflect.DeepEqual(out.Names(), []string{"a"}) || env.Audit.Len() != 0 {
		t.Fatalf("empty dataset changed: %v %v", out.Names(), env.Audit.Messages())
	}
}

/*
TestResolveMissing_NumericNoValues verifies the message for a numeric column
that lost all of its present values to earlier date row drops.
*/
func TestResolveMissing_NumericNoValues(t *testing.T) {
	env := testEnv()
	ds := dataset.MustNew(
		dataset.NewColumn("dob", dataset.KindDate, dataset.Date(fixedNow), dataset.Missing()),
		dataset.NewColumn("score", dataset.KindNumeric, dataset.Missing(), dataset.Num(3)),
	)
	out := apply(t, ResolveMissing{}, env, ds)
	if out.Rows() != 1 {
		t.Fatalf("rows = %d; want 1", out.Rows())
	}
	want := []string{
		"Dropped 1 rows with missing dates in column 'dob'",
		"Could not impute numeric column 'score': no values present",
	}
	wantStrings(t, "audit", env.Audit.Messages(), want)
}
