package builtin

import (
	"context"
	"reflect"
	"testing"
	"time"

	"dataclean/internal/audit"
	"dataclean/internal/dataset"
	"dataclean/internal/transformer"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testEnv() *transformer.Env {
	env := transformer.NewEnv()
	env.Audit = audit.New(audit.WithClock(func() time.Time { return fixedNow }))
	env.Now = func() time.Time { return fixedNow }
	env.Workers = 4
	return env
}

func apply(t *testing.T, st transformer.Stage, env *transformer.Env, ds *dataset.Dataset) *dataset.Dataset {
	t.Helper()
	out, err := st.Apply(context.Background(), env, ds)
	if err != nil {
		t.Fatalf("%s: %v", st.Name(), err)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("%s produced invalid dataset: %v", st.Name(), err)
	}
	return out
}

func texts(vals ...string) []dataset.Cell {
	out := make([]dataset.Cell, len(vals))
	for i, v := range vals {
		out[i] = dataset.Text(v)
	}
	return out
}

func nums(vals ...float64) []dataset.Cell {
	out := make([]dataset.Cell, len(vals))
	for i, v := range vals {
		out[i] = dataset.Num(v)
	}
	return out
}

// rendered returns every cell of col in string form, "<nil>" for missing.
func rendered(col *dataset.Column) []string {
	out := make([]string, len(col.Cells))
	for i, c := range col.Cells {
		if c.IsMissing() {
			out[i] = "<nil>"
			continue
		}
		out[i] = c.String(col.Layout)
	}
	return out
}

func wantStrings(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("%s:\n got: %#v\nwant: %#v", what, got, want)
	}
}
