// Package builtin contains the fixed cleaning stages of the pipeline.
//
// Stages run in this order, and several depend on the earlier ones:
//
//   - NormalizeColumns: canonical column names; every later stage that picks
//     columns by name ("gender", "date", "age") relies on it
//   - SanitizeStrings: trims and cleans text cells, remaps gender codes
//   - StandardizeDates: parses heterogeneous dates into one format
//   - ResolveMissing: drops sparse columns, imputes the remaining gaps
//   - ResolveDuplicates: keep-first duplicate removal by key columns
//   - MaskPII: SHA-256 digests for configured columns
//   - CorrectAnomalies: age range, future dates, mixed-type coercion
//
// Every stage is a value implementing transformer.Stage. Stages mutate the
// dataset they receive only after all fallible work for a column has
// succeeded.
package builtin

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"dataclean/internal/dataset"
	"dataclean/internal/transformer"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeColumns canonicalizes column names: lowercase, trimmed, every run
// of non-word characters replaced by one underscore, no leading or trailing
// underscores. Cell values are untouched and no audit event is emitted.
//
// Two columns that normalize to the same name are disambiguated with _2, _3,
// ... suffixes; the first keeps the plain name.
type NormalizeColumns struct{}

func (NormalizeColumns) Name() string { return "normalize_columns" }

func (NormalizeColumns) Apply(_ context.Context, env *transformer.Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	names := NormalizeNames(ds.Names())
	for i, c := range ds.Columns() {
		if names[i] != NormalizeName(c.Name) {
			env.Log().Warn("column name collision",
				zap.String("column", c.Name),
				zap.String("renamed", names[i]),
			)
		}
		c.Name = names[i]
	}
	return ds, nil
}

// NormalizeName returns the canonical form of a single column name. An input
// without any word character normalizes to "col".
func NormalizeName(s string) string {
	s = cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		// '_' counts as a separator so runs of underscores collapse.
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "col"
	}
	return b.String()
}

// NormalizeNames normalizes every name and resolves collisions. Suffixes skip
// any name that another column normalizes to on its own, so applying it twice
// yields the same names as applying it once.
func NormalizeNames(in []string) []string {
	base := make([]string, len(in))
	reserved := make(map[string]bool, len(in))
	for i, n := range in {
		base[i] = NormalizeName(n)
		reserved[base[i]] = true
	}
	used := make(map[string]bool, len(in))
	out := make([]string, len(in))
	for i, b := range base {
		if !used[b] {
			out[i] = b
			used[b] = true
			continue
		}
		for k := 2; ; k++ {
			cand := b + "_" + strconv.Itoa(k)
			if !used[cand] && !reserved[cand] {
				out[i] = cand
				used[cand] = true
				break
			}
		}
	}
	return out
}
