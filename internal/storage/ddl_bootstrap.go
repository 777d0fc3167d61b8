package storage

import (
	"context"
	"fmt"
	"sync"

	"dataclean/internal/dataset"
)

// DDLBootstrapper creates the destination table for ds when it does not
// exist, using the backend's dialect. Backends register one per kind.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string, ds *dataset.Dataset) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) a DDLBootstrapper for the given storage
// kind. It is typically called from backend packages' init() functions.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable locates the DDLBootstrapper for kind and invokes it.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, ds *dataset.Dataset) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, table, ds)
}
