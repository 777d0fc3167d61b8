// Package export writes a cleaned dataset and its report to disk.
package export

import (
	"archive/zip"
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"dataclean/internal/dataset"
	"dataclean/internal/pipeline"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// WriteCSV writes a header row and one row per record. Missing cells are
// empty; every other cell uses its canonical string form.
func WriteCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Names()); err != nil {
		return err
	}
	cols := ds.Columns()
	row := make([]string, len(cols))
	for i := 0; i < ds.Rows(); i++ {
		for j, c := range cols {
			row[j] = c.Text(i)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes an array of objects with keys in column order. Missing
// cells are null and dates are strings in the column layout.
func WriteJSON(w io.Writer, ds *dataset.Dataset) error {
	bw := bufio.NewWriter(w)
	cols := ds.Columns()
	keys := make([][]byte, len(cols))
	for j, c := range cols {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keys[j] = k
	}

	bw.WriteString("[")
	for i := 0; i < ds.Rows(); i++ {
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		for j, c := range cols {
			if j > 0 {
				bw.WriteString(",")
			}
			bw.Write(keys[j])
			bw.WriteString(":")
			if err := writeValue(bw, c, i); err != nil {
				return fmt.Errorf("export: row %d column %q: %w", i, c.Name, err)
			}
		}
		bw.WriteString("}")
	}
	if ds.Rows() > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

func writeValue(w *bufio.Writer, c *dataset.Column, i int) error {
	cell := c.Cells[i]
	if cell.IsMissing() {
		_, err := w.WriteString("null")
		return err
	}
	switch cell.Kind() {
	case dataset.KindNumeric:
		_, err := w.WriteString(strconv.FormatFloat(cell.Float(), 'f', -1, 64))
		return err
	case dataset.KindBool:
		_, err := w.WriteString(strconv.FormatBool(cell.Truth()))
		return err
	}
	b, err := json.Marshal(cell.String(c.Layout))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteXLSX writes one worksheet named "cleaned". Numbers and booleans keep
// their cell types, dates are text in the column layout and missing cells
// are left empty.
func WriteXLSX(w io.Writer, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "cleaned"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	cols := ds.Columns()
	header := make([]interface{}, len(cols))
	for j, c := range cols {
		header[j] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	row := make([]interface{}, len(cols))
	for i := 0; i < ds.Rows(); i++ {
		for j, c := range cols {
			row[j] = xlsxValue(c, i)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func xlsxValue(c *dataset.Column, i int) interface{} {
	cell := c.Cells[i]
	if cell.IsMissing() {
		return nil
	}
	switch cell.Kind() {
	case dataset.KindNumeric:
		return cell.Float()
	case dataset.KindBool:
		return cell.Truth()
	}
	return cell.String(c.Layout)
}

// Options controls Bundle.
type Options struct {
	Dir  string
	Name string
	// Format is "csv" (default), "json" or "xlsx".
	Format        string
	IncludeReport bool
	// Zip packs the written files into <name>_bundle.zip and removes them.
	Zip    bool
	Logger *zap.Logger
}

// Bundle writes <name>_cleaned.<ext>, optionally <name>_report.json, and
// optionally zips them. It returns the paths left on disk.
func Bundle(ds *dataset.Dataset, rep *pipeline.Report, opt Options) ([]string, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opt.Name == "" {
		opt.Name = "dataset"
	}
	if opt.Format == "" {
		opt.Format = "csv"
	}
	if opt.Dir != "" {
		if err := os.MkdirAll(opt.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}

	var files []string
	dataPath := filepath.Join(opt.Dir, opt.Name+"_cleaned."+opt.Format)
	switch opt.Format {
	case "csv":
		if err := writeFile(dataPath, func(w io.Writer) error { return WriteCSV(w, ds) }); err != nil {
			return nil, err
		}
	case "json":
		if err := writeFile(dataPath, func(w io.Writer) error { return WriteJSON(w, ds) }); err != nil {
			return nil, err
		}
	case "xlsx":
		if err := writeFile(dataPath, func(w io.Writer) error { return WriteXLSX(w, ds) }); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("export: unsupported format %q", opt.Format)
	}
	files = append(files, dataPath)

	if opt.IncludeReport && rep != nil {
		reportPath := filepath.Join(opt.Dir, opt.Name+"_report.json")
		err := writeFile(reportPath, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		})
		if err != nil {
			return nil, err
		}
		files = append(files, reportPath)
	}

	if !opt.Zip {
		log.Info("export written", zap.Strings("files", files))
		return files, nil
	}
	zipPath := filepath.Join(opt.Dir, opt.Name+"_bundle.zip")
	if err := zipFiles(zipPath, files); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	log.Info("export bundled", zap.String("zip", zipPath), zap.Int("files", len(files)))
	return []string{zipPath}, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

func zipFiles(zipPath string, files []string) error {
	return writeFile(zipPath, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, name := range files {
			if err := addToZip(zw, name); err != nil {
				return err
			}
		}
		return zw.Close()
	})
}

func addToZip(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
