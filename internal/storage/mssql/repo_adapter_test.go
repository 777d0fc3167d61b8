package mssql

import (
	"context"
	"testing"
	"time"

	"dataclean/internal/dataset"
	"dataclean/internal/storage"
)

// TestMSSQLStorageRegistrationUsesNewRepositoryHook verifies that the "mssql"
// storage backend registered in init() uses the newRepository hook and that
// the wrappedRepo correctly propagates configuration and close behavior.
func TestMSSQLStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	ctx := context.Background()

	origNewRepository := newRepository
	defer func() { newRepository = origNewRepository }()

	var (
		called   bool
		gotCfg   Config
		closed   bool
		fakeRepo = &Repository{}
	)

	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		called = true
		gotCfg = cfg
		return fakeRepo, func() { closed = true }, nil
	}

	cfg := storage.Config{
		Kind:    "mssql",
		DSN:     "sqlserver://example",
		Table:   "dbo.patients",
		Columns: []string{"id", "name"},
	}

	repo, err := storage.New(ctx, cfg)
	if err != nil {
		t.Fatalf("storage.New() error = %v, want nil", err)
	}
	if !called {
		t.Fatalf("newRepository hook was not called")
	}
	if gotCfg.DSN != cfg.DSN || gotCfg.Table != cfg.Table || len(gotCfg.Columns) != 2 {
		t.Errorf("hook cfg = %+v, want %+v", gotCfg, cfg)
	}

	w, ok := repo.(*wrappedRepo)
	if !ok {
		t.Fatalf("storage.New() type = %T, want *wrappedRepo", repo)
	}
	if w.Repository != fakeRepo {
		t.Fatalf("wrappedRepo.Repository = %p, want %p", w.Repository, fakeRepo)
	}

	repo.Close()
	if !closed {
		t.Fatalf("wrappedRepo.Close() did not invoke closeFn")
	}
}

// TestNewRepositoryRejectsBadDSN verifies DSN parsing fails before dialing.
func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"}); err == nil {
		t.Fatalf("expected DSN parse error")
	}
}

type execRecorder struct {
	storage.Repository
	stmts []string
}

func (e *execRecorder) Exec(_ context.Context, sql string) error {
	e.stmts = append(e.stmts, sql)
	return nil
}

// TestEnsureTableIsGuarded verifies the DDL bootstrapper renders bracketed
// identifiers, SQL Server types and an OBJECT_ID guard.
func TestEnsureTableIsGuarded(t *testing.T) {
	t.Parallel()

	ds := dataset.MustNew(
		dataset.NewColumn("name", dataset.KindText, dataset.Text("o'neil")),
		dataset.NewColumn("visit", dataset.KindDate, dataset.Date(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))),
		dataset.NewColumn("active", dataset.KindBool, dataset.Bool(true)),
	)
	rec := &execRecorder{}
	if err := storage.EnsureTable(context.Background(), "mssql", rec, "dbo.o'neil", ds); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	want := "IF OBJECT_ID(N'dbo.o''neil', N'U') IS NULL\n" +
		"CREATE TABLE [dbo].[o'neil] (\n  [name] NVARCHAR(MAX),\n  [visit] DATETIME2,\n  [active] BIT\n);"
	if len(rec.stmts) != 1 || rec.stmts[0] != want {
		t.Fatalf("DDL = %q\nwant %q", rec.stmts, want)
	}
}
