// Package ddl defines a small, backend-agnostic model for SQL DDL and the
// dialects that render it. Cleaned datasets carry a closed set of column
// kinds, so a dialect only needs one SQL type per kind.
package ddl

import (
	"fmt"
	"strings"

	"dataclean/internal/dataset"
)

// Dialect renders CREATE TABLE statements for one database. The zero value
// renders generic SQL with unquoted identifiers.
type Dialect struct {
	// Quote quotes one identifier segment; nil leaves it as-is.
	Quote func(string) string
	// IfNotExists adds IF NOT EXISTS after CREATE TABLE.
	IfNotExists bool
	// Guard wraps the statement for databases without IF NOT EXISTS. It gets
	// the unquoted FQN.
	Guard func(fqn, stmt string) string
	// Types maps column kinds to SQL types.
	Types map[dataset.Kind]string
}

// BuildCreateTableSQL renders a generic CREATE TABLE statement from a TableDef.
//
// A column is rendered as:
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// Columns with PrimaryKey == true are collected into a trailing PRIMARY KEY
// clause.
func BuildCreateTableSQL(t TableDef) (string, error) {
	return Dialect{}.CreateTable(t)
}

// CreateTable renders t in this dialect.
func (d Dialect) CreateTable(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := "CREATE TABLE "
	if d.IfNotExists {
		create += "IF NOT EXISTS "
	}
	stmt := fmt.Sprintf("%s%s (\n  %s\n);", create, d.QuoteTable(fqn), strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		stmt = d.Guard(fqn, stmt)
	}
	return stmt, nil
}

// QuoteIdents quotes each name and joins them with ", ".
func (d Dialect) QuoteIdents(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.QuoteIdent(n)
	}
	return strings.Join(out, ", ")
}

// FromDataset derives a nullable table definition from the column kinds of
// ds.
func (d Dialect) FromDataset(fqn string, ds *dataset.Dataset) (TableDef, error) {
	td := TableDef{FQN: fqn}
	for _, c := range ds.Columns() {
		typ, ok := d.Types[c.Kind]
		if !ok {
			return TableDef{}, fmt.Errorf("ddl: no SQL type for %s column %q", c.Kind, c.Name)
		}
		td.Columns = append(td.Columns, ColumnDef{Name: c.Name, SQLType: typ, Nullable: true})
	}
	return td, nil
}

// QuoteIdent quotes a single identifier.
func (d Dialect) QuoteIdent(s string) string {
	if d.Quote == nil {
		return s
	}
	return d.Quote(s)
}

// QuoteTable quotes each dotted segment of a table name; empty segments are
// dropped.
func (d Dialect) QuoteTable(f string) string {
	if d.Quote == nil {
		return f
	}
	parts := strings.Split(f, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// DoubleQuote quotes an identifier ANSI style: "weird""name".
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// Bracket quotes a SQL Server identifier: [weird]]name].
func Bracket(id string) string {
	return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]`
}
