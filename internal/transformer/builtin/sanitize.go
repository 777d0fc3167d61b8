package builtin

import (
	"context"
	"strings"
	"unicode"

	"dataclean/internal/dataset"
	"dataclean/internal/transformer"

	"golang.org/x/text/unicode/norm"
)

// genderCodes maps lowercased input codes to canonical values.
var genderCodes = map[string]string{
	"m":      "male",
	"male":   "male",
	"f":      "female",
	"female": "female",
	"0":      "male",
	"1":      "female",
}

// SanitizeStrings cleans every text column: cells are NFC-normalized and
// trimmed, gender-like columns get their codes remapped, then every rune that
// is not a letter, number, underscore, whitespace or one of ". , -" is removed.
// The remap runs before stripping so mapped words survive intact.
type SanitizeStrings struct{}

func (SanitizeStrings) Name() string { return "sanitize_strings" }

func (SanitizeStrings) Apply(_ context.Context, _ *transformer.Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	for _, col := range ds.Columns() {
		if col.Kind != dataset.KindText {
			continue
		}
		gender := IsGenderColumn(col.Name)
		for i, cell := range col.Cells {
			if cell.IsMissing() {
				continue
			}
			col.Cells[i] = dataset.Text(SanitizeCell(cell.Str(), gender))
		}
	}
	return ds, nil
}

// IsGenderColumn reports whether a normalized column name holds gender codes.
func IsGenderColumn(name string) bool {
	return strings.Contains(name, "gender") || strings.Contains(name, "sex")
}

// SanitizeCell applies the per-cell cleaning of SanitizeStrings.
func SanitizeCell(s string, gender bool) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if gender {
		if mapped, ok := genderCodes[strings.ToLower(s)]; ok {
			s = mapped
		}
	}
	return strings.Map(func(r rune) rune {
		if keepRune(r) {
			return r
		}
		return -1
	}, s)
}

func keepRune(r rune) bool {
	switch r {
	case '_', '.', ',', '-':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r)
}
