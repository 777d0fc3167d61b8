// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it causes the init
// functions of each backend to register their factories and DDL
// bootstrappers, making these kinds available:
//
//   - "postgres" (dataclean/internal/storage/postgres)
//   - "mssql"    (dataclean/internal/storage/mssql)
//   - "sqlite"   (dataclean/internal/storage/sqlite)
//
// A binary that needs only a subset can import the backends directly instead.
package all

import (
	_ "dataclean/internal/storage/mssql"
	_ "dataclean/internal/storage/postgres"
	_ "dataclean/internal/storage/sqlite"
)
