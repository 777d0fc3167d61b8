package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dataclean/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upperNames = `
import "strings"

func Apply(rows []map[string]interface{}) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		if s, ok := r["name"].(string); ok {
			r["name"] = strings.ToUpper(s)
		}
		if v, ok := r["score"].(float64); ok && v < 0 {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
`

func TestScript_Apply(t *testing.T) {
	s, err := NewScript("upper_names", upperNames)
	require.NoError(t, err)
	assert.Equal(t, "upper_names", s.Name())

	when := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day := dataset.NewColumn("day", dataset.KindDate, dataset.Date(when), dataset.Date(when), dataset.Missing())
	day.Layout = "%d/%m/%Y"
	in := dataset.MustNew(
		dataset.NewColumn("score", dataset.KindNumeric, dataset.Num(1), dataset.Num(-1), dataset.Num(3)),
		dataset.NewColumn("name", dataset.KindText, dataset.Text("ann"), dataset.Text("bob"), dataset.Missing()),
		day,
	)

	out, err := s.Apply(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"score", "name", "day"}, out.Names())
	assert.Equal(t, 2, out.Rows())
	assert.Equal(t, "ANN", out.Column("name").Text(0))
	assert.True(t, out.Column("name").Cells[1].IsMissing())
	assert.Equal(t, dataset.KindDate, out.Column("day").Kind)
	assert.Equal(t, "02/01/2024", out.Column("day").Text(0))
}

func TestScript_ErrorsPropagate(t *testing.T) {
	s, err := NewScript("reject", `
import "errors"

func Apply(rows []map[string]interface{}) ([]map[string]interface{}, error) {
	return nil, errors.New("rejected")
}
`)
	require.NoError(t, err)
	_, err = s.Apply(context.Background(), dataset.MustNew(dataset.NewColumn("a", dataset.KindText, dataset.Text("x"))))
	assert.EqualError(t, err, "rejected")
}

func TestNewScript_Rejects(t *testing.T) {
	_, err := NewScript("", "func Apply() {}")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewScript("broken", "func Apply(")
	assert.Error(t, err)

	_, err = NewScript("missing", "func Other() {}")
	assert.Error(t, err)

	_, err = NewScript("wrong_sig", "func Apply(n int) int { return n }")
	assert.ErrorContains(t, err, "Apply must be")
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"+upperNames), 0o644))

	s, err := LoadScript("from_file", path)
	require.NoError(t, err)

	r := NewRegistry()
	require.NoError(t, r.Register(s))
	assert.Equal(t, 1, r.Len())

	_, err = LoadScript("absent", filepath.Join(t.TempDir(), "nope.go"))
	assert.Error(t, err)
}
