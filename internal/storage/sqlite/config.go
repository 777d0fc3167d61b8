// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

import (
	"dataclean/internal/dataset"
	"dataclean/internal/ddl"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:clean.db?cache=shared"
	//   "clean.db" (interpreted by the driver)
	DSN string

	// Table is the target table name for inserts, e.g. "patients". FQN
	// values such as "main.patients" are accepted.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}

// Dialect renders SQLite DDL. Dates are stored as TIMESTAMP text and bools
// as 0/1 integers, the driver's native encodings.
var Dialect = ddl.Dialect{
	Quote:       ddl.DoubleQuote,
	IfNotExists: true,
	Types: map[dataset.Kind]string{
		dataset.KindText:    "TEXT",
		dataset.KindNumeric: "REAL",
		dataset.KindDate:    "TIMESTAMP",
		dataset.KindBool:    "INTEGER",
	},
}
