package main

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dataclean/internal/config"
	"dataclean/internal/pipeline"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sampleCSV = "Name,Age,Email\nBob,42,bob@example.com\nBob,42,bob@example.com\nAnn,,ann@example.com\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// TestRunOnce_ExportsAndStores runs a full job: ingest, clean, export with a
// report, and a SQLite load with table auto-creation.
func TestRunOnce_ExportsAndStores(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "patients.csv", sampleCSV)
	dbPath := filepath.Join(dir, "clean.db")

	p := config.Pipeline{
		Job:    "patients",
		Source: config.Source{Kind: "file", File: config.SourceFile{Path: in}},
		Clean:  config.Clean{PIIColumns: []string{"email"}},
		Output: config.Output{Dir: filepath.Join(dir, "out"), Name: "patients", IncludeReport: true},
		Storage: config.Storage{Kind: "sqlite", DB: config.DBConfig{
			DSN: dbPath, Table: "patients", AutoCreateTable: true, BatchSize: 1,
		}},
	}

	res, err := runOnce(context.Background(), p, zap.NewNop())
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if res.Report.OriginalRows != 3 || res.Report.FinalRows != 2 || res.Report.DuplicateCount != 1 {
		t.Fatalf("report rows = %d→%d dup %d, want 3→2 dup 1",
			res.Report.OriginalRows, res.Report.FinalRows, res.Report.DuplicateCount)
	}
	if res.Stored != 2 {
		t.Fatalf("stored = %d, want 2", res.Stored)
	}
	if res.Report.OriginalFile != in || res.Report.LoadTime == nil {
		t.Fatalf("report source = %q loaded %v", res.Report.OriginalFile, res.Report.LoadTime)
	}
	if len(res.Report.SampleData) != 2 {
		t.Fatalf("sample rows = %d, want 2", len(res.Report.SampleData))
	}

	for _, name := range []string{"patients_cleaned.csv", "patients_report.json"} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
	b, err := os.ReadFile(filepath.Join(dir, "out", "patients_cleaned.csv"))
	if err != nil {
		t.Fatalf("read cleaned: %v", err)
	}
	if !strings.HasPrefix(string(b), "name,age,email\n") {
		t.Fatalf("cleaned header = %q, want normalized names", strings.SplitN(string(b), "\n", 2)[0])
	}
	if strings.Contains(string(b), "bob@example.com") {
		t.Fatalf("email was not masked:\n%s", b)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM patients`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("table rows = %d, want 2", n)
	}
}

// TestRunOnce_ScriptRule verifies configured script rules run after the
// built-in stages.
func TestRunOnce_ScriptRule(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "people.csv", sampleCSV)
	rule := writeFile(t, dir, "drop_bob.go", `
func Apply(rows []map[string]interface{}) ([]map[string]interface{}, error) {
	out := []map[string]interface{}{}
	for _, r := range rows {
		if r["name"] != "Bob" {
			out = append(out, r)
		}
	}
	return out, nil
}
`)
	p := config.Pipeline{
		Job:    "people",
		Source: config.Source{Kind: "file", File: config.SourceFile{Path: in}},
		Clean:  config.Clean{Rules: []config.Rule{{Name: "drop_bob", Path: rule}}},
		Output: config.Output{Dir: dir, Name: "people", Format: "json"},
	}
	res, err := runOnce(context.Background(), p, zap.NewNop())
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if res.Report.FinalRows != 1 {
		t.Fatalf("final rows = %d, want 1", res.Report.FinalRows)
	}
	if len(res.Files) != 1 || filepath.Base(res.Files[0]) != "people_cleaned.json" {
		t.Fatalf("files = %v", res.Files)
	}
}

// TestBuildRules_CompileError verifies a broken rule stops the run before
// any data is touched.
func TestBuildRules_CompileError(t *testing.T) {
	_, err := buildRules([]config.Rule{{Name: "broken", Script: "func Apply( {"}})
	if err == nil {
		t.Fatal("expected compile error")
	}
}

// TestFlagsApply verifies overrides and the defaults derived from the input
// path.
func TestFlagsApply(t *testing.T) {
	f := &flags{input: "data/visits.2024.csv", outDir: "out", metricsBackend: "datadog", schedule: "@hourly"}
	var p config.Pipeline
	p.Output.Dir = "ignored"
	f.apply(&p)

	if p.Source.Kind != "file" || p.Source.File.Path != "data/visits.2024.csv" {
		t.Fatalf("source = %+v", p.Source)
	}
	if p.Output.Dir != "out" || p.Output.Name != "visits.2024" || p.Job != "visits.2024" {
		t.Fatalf("output = %+v job = %q", p.Output, p.Job)
	}
	if p.Metrics.Backend != "datadog" || p.Schedule != "@hourly" {
		t.Fatalf("metrics = %+v schedule = %q", p.Metrics, p.Schedule)
	}

	p = config.Pipeline{Job: "keep"}
	p.Output.Name = "keep"
	(&flags{input: "x.csv"}).apply(&p)
	if p.Job != "keep" || p.Output.Name != "keep" {
		t.Fatalf("explicit names overwritten: job %q name %q", p.Job, p.Output.Name)
	}
}

// TestSummary verifies the human-readable run line.
func TestSummary(t *testing.T) {
	res := &result{
		Report: &pipeline.Report{Job: "big", OriginalRows: 1234567, FinalRows: 1234000,
			OriginalColumns: 12, FinalColumns: 11, DuplicateCount: 567, WarningsCount: 3},
		Stored:  1234000,
		Elapsed: 1500 * time.Millisecond,
	}
	want := "big: 1,234,567 → 1,234,000 rows, 12 → 11 columns, 567 duplicates removed, 3 warnings, 1,234,000 rows stored in 1.5s"
	if got := summary(res); got != want {
		t.Fatalf("summary =\n%q\nwant\n%q", got, want)
	}
}

// TestSetupMetrics_Unknown verifies an unknown backend is rejected.
func TestSetupMetrics_Unknown(t *testing.T) {
	if _, err := setupMetrics(config.Pipeline{Metrics: config.Metrics{Backend: "graphite"}}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	flush, err := setupMetrics(config.Pipeline{}, zap.NewNop())
	if err != nil || flush == nil {
		t.Fatalf("none backend: flush=%v err=%v", flush != nil, err)
	}
	flush()
}

// TestValidateCommand exercises the cobra wiring for valid and invalid job
// files.
func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", "DATACLEAN_TEST_UNUSED=1\n")
	good := writeFile(t, dir, "good.yaml", "job: ok\nsource: { kind: file, file: { path: in.csv } }\n")
	bad := writeFile(t, dir, "bad.yaml", "job: ok\nsource: { kind: file, file: { path: in.csv } }\noutput: { format: xml }\n")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"validate", "--config", good, "--env-file", env})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("validate good: %v (stderr %q)", err, errOut.String())
	}
	if !strings.Contains(out.String(), "configuration is valid") {
		t.Fatalf("stdout = %q", out.String())
	}

	errOut.Reset()
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"validate", "--config", bad, "--env-file", env})
	if err := cmd.Execute(); err == nil {
		t.Fatal("validate bad: expected error")
	}
	if !strings.Contains(errOut.String(), "output.format") {
		t.Fatalf("stderr = %q, want output.format issue", errOut.String())
	}
}

// TestRunOnce_HTTPSource verifies an input downloaded over HTTP is cleaned
// and named after the URL's last path segment.
func TestRunOnce_HTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sampleCSV)
	}))
	defer srv.Close()

	dir := t.TempDir()
	p := config.Pipeline{
		Job:    "remote",
		Source: config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: srv.URL + "/exports/visits.csv"}},
		Output: config.Output{Dir: dir},
	}
	res, err := runOnce(context.Background(), p, zap.NewNop())
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if res.Report.OriginalRows != 3 {
		t.Fatalf("original rows = %d, want 3", res.Report.OriginalRows)
	}
	if len(res.Files) != 1 || filepath.Base(res.Files[0]) != "visits_cleaned.csv" {
		t.Fatalf("files = %v", res.Files)
	}
}
