package builtin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"dataclean/internal/dataset"
	"dataclean/internal/transformer"
)

// MaskPII replaces every present cell of the configured columns with the hex
// SHA-256 digest of its string form. Missing cells stay missing and masked
// columns become text. Masking appends no audit event; the masked column
// names are recorded in Env.Stats.
type MaskPII struct {
	Columns []string
}

func (MaskPII) Name() string { return "mask_pii" }

func (m MaskPII) Apply(_ context.Context, env *transformer.Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if len(m.Columns) == 0 || ds.Rows() == 0 {
		return ds, nil
	}
	done := make(map[string]bool, len(m.Columns))
	for _, name := range m.Columns {
		i := ds.Index(name)
		if i < 0 || done[name] {
			continue
		}
		done[name] = true
		if err := ds.ReplaceColumn(i, maskColumn(ds.Columns()[i])); err != nil {
			return nil, err
		}
		if env.Stats != nil {
			env.Stats.MaskedColumns = append(env.Stats.MaskedColumns, name)
		}
	}
	return ds, nil
}

func maskColumn(col *dataset.Column) *dataset.Column {
	cells := make([]dataset.Cell, len(col.Cells))
	for i, c := range col.Cells {
		if c.IsMissing() {
			cells[i] = dataset.Missing()
			continue
		}
		cells[i] = dataset.Text(Digest(c.String(col.Layout)))
	}
	return dataset.NewColumn(col.Name, dataset.KindText, cells...)
}

// Digest returns the lowercase hex SHA-256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
