package ingest

import (
	"fmt"
	"io"
	"strings"

	"dataclean/internal/dataset"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// readXLSX reads one worksheet: the named Sheet, or the first one. The first
// row is the header. Cells are read as displayed, so dates arrive as text in
// the workbook's number format.
func readXLSX(r io.Reader, opt Options) (*dataset.Dataset, error) {
	log := opt.log()
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: open workbook: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return dataset.New()
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return dataset.New()
	}
	headers := headerNames(rows[0])

	na := opt.naSet()
	cols := make([][]string, len(headers))
	missing := make([][]bool, len(headers))
	var n, skipped int
	for line, row := range rows[1:] {
		if opt.MaxRows > 0 && n >= opt.MaxRows {
			break
		}
		// Trailing empty cells are not stored in the sheet.
		if len(row) > len(headers) {
			if skipped < skipLogLimit {
				log.Warn("skipping row: incorrect number of fields",
					zap.Int("line", line+2), zap.Int("expected", len(headers)), zap.Int("got", len(row)))
			}
			skipped++
			continue
		}
		for i := range headers {
			var val string
			if i < len(row) {
				val = row[i]
			}
			_, isNA := na[strings.TrimSpace(val)]
			cols[i] = append(cols[i], val)
			missing[i] = append(missing[i], isNA)
		}
		n++
	}
	if skipped > 0 {
		log.Warn("rows skipped", zap.Int("skipped", skipped), zap.Int("kept", n))
	}

	out := make([]*dataset.Column, len(headers))
	for i, name := range headers {
		out[i] = inferColumn(name, cols[i], missing[i])
	}
	return dataset.New(out...)
}
