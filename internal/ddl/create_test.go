package ddl

import (
	"strconv"
	"strings"
	"testing"

	"dataclean/internal/dataset"
)

// TestBuildCreateTableSQL verifies that BuildCreateTableSQL generates the
// expected CREATE TABLE statements and surfaces appropriate errors for invalid
// inputs.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "public.t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: " ", SQLType: "INT"}}},
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "missing SQLType",
		},
		{
			name:    "nullable column",
			def:     TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id", SQLType: "INT", Nullable: true}}},
			wantSQL: "CREATE TABLE t (\n  id INT\n);",
		},
		{
			name: "primary key and default",
			def: TableDef{
				FQN: "t",
				Columns: []ColumnDef{
					{Name: "id", SQLType: "INT", Nullable: true, PrimaryKey: true},
					{Name: "name", SQLType: "TEXT", Nullable: true, Default: "'anon'"},
				},
			},
			wantSQL: "CREATE TABLE t (\n  id INT NOT NULL,\n  name TEXT DEFAULT 'anon',\n  PRIMARY KEY (id)\n);",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tt.def)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tt.wantSQL)
			}
		})
	}
}

// TestDialectQuotingAndGuard verifies identifier quoting per FQN segment,
// IF NOT EXISTS and statement guards.
func TestDialectQuotingAndGuard(t *testing.T) {
	t.Parallel()

	def := TableDef{
		FQN:     "public.pat\"ients",
		Columns: []ColumnDef{{Name: "first name", SQLType: "TEXT", Nullable: true}},
	}

	pg := Dialect{Quote: DoubleQuote, IfNotExists: true}
	got, err := pg.CreateTable(def)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"pat\"\"ients\" (\n  \"first name\" TEXT\n);"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}

	ms := Dialect{
		Quote: Bracket,
		Guard: func(fqn, stmt string) string { return "IF OBJECT_ID(N'" + fqn + "') IS NULL\n" + stmt },
	}
	got, err = ms.CreateTable(TableDef{FQN: "dbo.t", Columns: []ColumnDef{{Name: "a]b", SQLType: "BIT", Nullable: true}}})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	want = "IF OBJECT_ID(N'dbo.t') IS NULL\nCREATE TABLE [dbo].[t] (\n  [a]]b] BIT\n);"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}

	if s := pg.QuoteIdents([]string{"a", "b"}); s != `"a", "b"` {
		t.Fatalf("QuoteIdents = %q", s)
	}
}

// TestFromDataset verifies that column kinds map through the dialect's type
// table and that an unmapped kind is reported.
func TestFromDataset(t *testing.T) {
	t.Parallel()

	ds := dataset.MustNew(
		dataset.NewColumn("name", dataset.KindText, dataset.Text("bob")),
		dataset.NewColumn("age", dataset.KindNumeric, dataset.Num(42)),
		dataset.NewColumn("active", dataset.KindBool, dataset.Bool(true)),
	)
	d := Dialect{Types: map[dataset.Kind]string{
		dataset.KindText:    "TEXT",
		dataset.KindNumeric: "REAL",
		dataset.KindBool:    "INTEGER",
	}}
	td, err := d.FromDataset("people", ds)
	if err != nil {
		t.Fatalf("FromDataset: %v", err)
	}
	got, err := d.CreateTable(td)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	want := "CREATE TABLE people (\n  name TEXT,\n  age REAL,\n  active INTEGER\n);"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}

	delete(d.Types, dataset.KindBool)
	if _, err := d.FromDataset("people", ds); err == nil || !strings.Contains(err.Error(), "active") {
		t.Fatalf("err = %v, want unmapped kind error naming the column", err)
	}
}

var benchmarkSink string

// BenchmarkCreateTable measures rendering a wide quoted table.
func BenchmarkCreateTable(b *testing.B) {
	cols := make([]ColumnDef, 64)
	for i := range cols {
		cols[i] = ColumnDef{Name: "col_" + strconv.Itoa(i), SQLType: "TEXT", Nullable: true}
	}
	def := TableDef{FQN: "public.wide", Columns: cols}
	d := Dialect{Quote: DoubleQuote, IfNotExists: true}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, err := d.CreateTable(def)
		if err != nil {
			b.Fatal(err)
		}
		benchmarkSink = s
	}
}
