package builtin

import (
	"testing"

	"dataclean/internal/dataset"
)

/*
TestSanitizeStrings_GenderAndStrip verifies trimming, the gender remap (case
insensitive, unmapped values kept) and special character stripping.
*/
func TestSanitizeStrings_GenderAndStrip(t *testing.T) {
	env := testEnv()
	ds := dataset.MustNew(
		dataset.NewColumn("gender", dataset.KindText,
			append(texts(" M ", "FEMALE", "0", "1", "x@y", "Other"), dataset.Missing())...),
		dataset.NewColumn("notes", dataset.KindText,
			texts("  hi! ", "a_b.c,d-e", "m", "tab\there", "naïve #1", "ok", "")...),
	)
	out := apply(t, SanitizeStrings{}, env, ds)

	wantStrings(t, "gender", rendered(out.Column("gender")),
		[]string{"male", "female", "male", "female", "xy", "Other", "<nil>"})
	wantStrings(t, "notes", rendered(out.Column("notes")),
		[]string{"hi", "a_b.c,d-e", "m", "tab\there", "naïve 1", "ok", ""})
	if env.Audit.Len() != 0 {
		t.Fatalf("sanitizer should not audit: %v", env.Audit.Messages())
	}
}

/*
TestSanitizeStrings_SkipsNonText verifies numeric and bool columns are left
alone even when their name looks like gender.
*/
func TestSanitizeStrings_SkipsNonText(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NewColumn("sex", dataset.KindNumeric, nums(0, 1)...),
		dataset.NewColumn("flag", dataset.KindBool, dataset.Bool(true), dataset.Bool(false)),
	)
	out := apply(t, SanitizeStrings{}, testEnv(), ds)
	if out.Column("sex").Kind != dataset.KindNumeric {
		t.Fatalf("numeric column changed kind")
	}
	wantStrings(t, "sex", rendered(out.Column("sex")), []string{"0", "1"})
}

/*
TestSanitizeCell_RemapBeforeStrip verifies that a mapped code is produced
before stripping, and that stripping can still expose a mapped code only when
the raw value itself was a code.
*/
func TestSanitizeCell_RemapBeforeStrip(t *testing.T) {
	if got := SanitizeCell("F", true); got != "female" {
		t.Fatalf("F -> %q", got)
	}
	// "m!" is not a known code before stripping, so it stays "m".
	if got := SanitizeCell("m!", true); got != "m" {
		t.Fatalf("m! -> %q", got)
	}
	if got := SanitizeCell("F", false); got != "F" {
		t.Fatalf("non-gender column remapped: %q", got)
	}
}
