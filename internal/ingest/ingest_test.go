package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dataclean/internal/config"
	"dataclean/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRead_CSVInfersKinds(t *testing.T) {
	const in = "\uFEFFID,Full Name,Active,Score,Notes\n" +
		"1,Ann,true,3.5,\n" +
		"2,Bob,FALSE,NA,x\n" +
		"3,Cy,true,n/a,y\n" +
		"4,Dee\n"

	ds, err := Read(strings.NewReader(in), FormatCSV, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Full Name", "Active", "Score", "Notes"}, ds.Names())
	assert.Equal(t, 3, ds.Rows(), "short row is skipped")

	assert.Equal(t, dataset.KindNumeric, ds.Column("ID").Kind)
	assert.Equal(t, dataset.KindBool, ds.Column("Active").Kind)
	assert.False(t, ds.Column("Active").Cells[1].Truth())
	assert.Equal(t, dataset.KindText, ds.Column("Full Name").Kind)

	// "n/a" is not a default NA token, so the column stays text.
	score := ds.Column("Score")
	assert.Equal(t, dataset.KindText, score.Kind)
	assert.True(t, score.Cells[1].IsMissing())
	assert.Equal(t, "n/a", score.Text(2))

	assert.True(t, ds.Column("Notes").Cells[0].IsMissing())
}

func TestRead_CustomNAAndMaxRows(t *testing.T) {
	const in = "a;b\n1;-\n2;5\n3;6\n"
	ds, err := Read(strings.NewReader(in), FormatCSV, Options{Comma: ';', NAValues: []string{"-"}, MaxRows: 2})
	require.NoError(t, err)
	require.Equal(t, 2, ds.Rows())
	b := ds.Column("b")
	assert.Equal(t, dataset.KindNumeric, b.Kind)
	assert.True(t, b.Cells[0].IsMissing())
	assert.Equal(t, 5.0, b.Cells[1].Float())
}

func TestRead_TSVAndBlankHeaders(t *testing.T) {
	ds, err := Read(strings.NewReader("x\t\n1\t2\n"), FormatTSV, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "col_1"}, ds.Names())
}

func TestRead_EmptyInput(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSON} {
		ds, err := Read(strings.NewReader(""), f, Options{})
		require.NoError(t, err, f)
		assert.Zero(t, ds.Width(), f)
	}
}

func TestRead_JSONArray(t *testing.T) {
	const in = `[
	  {"id": 1, "name": "Ann", "tags": ["a"], "ok": true},
	  {"name": "NULL", "id": 2, "extra": {"k": 1}},
	  {"id": 3.5, "name": "Cy", "ok": false}
	]`
	ds, err := Read(strings.NewReader(in), FormatJSON, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "tags", "ok", "extra"}, ds.Names())
	assert.Equal(t, dataset.KindNumeric, ds.Column("id").Kind)
	assert.Equal(t, 3.5, ds.Column("id").Cells[2].Float())
	assert.True(t, ds.Column("name").Cells[1].IsMissing())
	assert.Equal(t, `["a"]`, ds.Column("tags").Text(0))
	assert.True(t, ds.Column("tags").Cells[1].IsMissing())
	assert.Equal(t, dataset.KindBool, ds.Column("ok").Kind)
	assert.Equal(t, `{"k":1}`, ds.Column("extra").Text(1))
}

func TestRead_NDJSON(t *testing.T) {
	ds, err := Read(strings.NewReader("{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n"), FormatJSON, Options{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows())
}

func TestRead_JSONRejectsScalars(t *testing.T) {
	_, err := Read(strings.NewReader(`42`), FormatJSON, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read(strings.NewReader(`[1, 2]`), FormatJSON, Options{})
	assert.Error(t, err)
}

func TestLoad_DetectsFormat(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "in.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("a\n1\n"), 0o644))
	ds, err := Load(csvPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Rows())

	xls := filepath.Join(dir, "in.xls")
	require.NoError(t, os.WriteFile(xls, []byte("x"), 0o644))
	_, err = Load(xls, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	// An explicit format wins over the extension.
	txt := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(txt, []byte(`[{"a":1}]`), 0o644))
	ds, err = Load(txt, Options{Format: FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ds.Names())

	_, err = Load(filepath.Join(dir, "absent.csv"), Options{})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	opt := FromConfig(config.Parser{Kind: "tsv", Options: config.Options{
		"comma":     ";",
		"na_values": []any{"?"},
		"max_rows":  float64(10),
	}})
	assert.Equal(t, Options{Format: FormatTSV, Comma: ';', NAValues: []string{"?"}, MaxRows: 10}, opt)

	opt = FromConfig(config.Parser{Kind: "xlsx", Options: config.Options{"sheet": "Data"}})
	assert.Equal(t, Options{Format: FormatXLSX, Sheet: "Data"}, opt)
}

type memSource struct {
	name, body string
	err        error
}

func (m memSource) Name() string { return m.name }

func (m memSource) Open(context.Context) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.body)), nil
}

func TestFromSource(t *testing.T) {
	ds, err := FromSource(context.Background(), memSource{name: "rows.ndjson", body: `{"a":1}` + "\n" + `{"a":2}`}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, dataset.KindNumeric, ds.Column("a").Kind)

	_, err = FromSource(context.Background(), memSource{name: "report"}, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	ds, err = FromSource(context.Background(), memSource{name: "report", body: "a;b\n1;2\n"}, Options{Format: FormatCSV, Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.Names())

	boom := errors.New("unreachable")
	_, err = FromSource(context.Background(), memSource{name: "x.csv", err: boom}, Options{})
	assert.ErrorIs(t, err, boom)
}

// workbook writes rows to sheet of a new xlsx file under dir.
func workbook(t *testing.T, dir, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(dir, "in.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad_XLSX(t *testing.T) {
	path := workbook(t, t.TempDir(), "Sheet1", [][]interface{}{
		{"ID", "Name", "Score", "Note"},
		{1, "Ann", 3.5, "x"},
		{2, "Bob", "NA"},
		{3, "", 4},
	})

	ds, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name", "Score", "Note"}, ds.Names())
	require.Equal(t, 3, ds.Rows(), "short rows are padded, not skipped")
	assert.Equal(t, dataset.KindNumeric, ds.Column("ID").Kind)
	assert.Equal(t, dataset.KindNumeric, ds.Column("Score").Kind)
	assert.True(t, ds.Column("Score").Cells[1].IsMissing())
	assert.True(t, ds.Column("Name").Cells[2].IsMissing())
	assert.True(t, ds.Column("Note").Cells[1].IsMissing())

	ds, err = Load(path, Options{MaxRows: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Rows())
}

func TestLoad_XLSXSheet(t *testing.T) {
	dir := t.TempDir()
	path := workbook(t, dir, "Data", [][]interface{}{{"a"}, {"x"}})

	ds, err := Load(path, Options{Sheet: "Data"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ds.Names())
	assert.Equal(t, 1, ds.Rows())

	_, err = Load(path, Options{Sheet: "Missing"})
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o644))
	_, err = Load(bad, Options{})
	assert.Error(t, err)
}
