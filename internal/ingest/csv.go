package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataclean/internal/dataset"

	"go.uber.org/zap"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// skipLogLimit caps per-row skip logging on badly broken files.
const skipLogLimit = 400

// readDelimited reads a header row and body rows. Rows whose width differs
// from the header are skipped and counted.
func readDelimited(r io.Reader, opt Options) (*dataset.Dataset, error) {
	log := opt.log()
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return dataset.New()
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv header: %w", err)
	}
	headers := headerNames(h)

	na := opt.naSet()
	cols := make([][]string, len(headers))
	missing := make([][]bool, len(headers))
	var rows, skipped int
	for line := 2; ; line++ {
		if opt.MaxRows > 0 && rows >= opt.MaxRows {
			break
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				log.Warn("skipping row", zap.Int("line", line), zap.Error(err))
			}
			skipped++
			continue
		}
		if len(row) != len(headers) {
			if skipped < skipLogLimit {
				log.Warn("skipping row: incorrect number of fields",
					zap.Int("line", line), zap.Int("expected", len(headers)), zap.Int("got", len(row)))
			}
			skipped++
			continue
		}
		for i, val := range row {
			_, isNA := na[strings.TrimSpace(val)]
			cols[i] = append(cols[i], val)
			missing[i] = append(missing[i], isNA)
		}
		rows++
	}
	if skipped > 0 {
		log.Warn("rows skipped", zap.Int("skipped", skipped), zap.Int("kept", rows))
	}

	out := make([]*dataset.Column, len(headers))
	for i, name := range headers {
		out[i] = inferColumn(name, cols[i], missing[i])
	}
	return dataset.New(out...)
}

// headerNames strips the BOM and names blank headers "col_N". Names are
// otherwise left for the cleaning stages to normalize.
func headerNames(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		if strings.TrimSpace(col) == "" {
			col = fmt.Sprintf("col_%d", i)
		}
		res[i] = col
	}
	return res
}
