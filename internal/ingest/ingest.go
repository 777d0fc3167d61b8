// Package ingest reads delimited, JSON and Excel files into a dataset. Readers do
// not clean anything: header names are kept as written and cells are only
// mapped to missing when they spell a missing-value token.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dataclean/internal/config"
	"dataclean/internal/dataset"

	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for inputs that no reader handles.
var ErrUnsupportedFormat = errors.New("ingest: unsupported format")

// DefaultNAValues are read as missing cells.
var DefaultNAValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None"}

// Format names a reader.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Options configures a load. All fields are optional.
type Options struct {
	// Format overrides detection by file extension.
	Format Format

	// Comma is the field delimiter for csv; tsv always uses a tab.
	Comma rune

	// NAValues replaces DefaultNAValues when set.
	NAValues []string

	// MaxRows stops reading after this many data rows when > 0.
	MaxRows int

	// Sheet names the worksheet for xlsx; empty means the first sheet.
	Sheet string

	Logger *zap.Logger
}

// FromConfig builds Options from the parser section of a job file.
func FromConfig(p config.Parser) Options {
	return Options{
		Format:   Format(p.Kind),
		Comma:    p.Options.Rune("comma", 0),
		NAValues: p.Options.StringSlice("na_values"),
		MaxRows:  p.Options.Int("max_rows", 0),
		Sheet:    p.Options.String("sheet", ""),
	}
}

func (o Options) log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) naSet() map[string]struct{} {
	vals := o.NAValues
	if len(vals) == 0 {
		vals = DefaultNAValues
	}
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}

// Detect picks the format for path from its extension.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".json", ".ndjson":
		return FormatJSON, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load reads the file at path.
func Load(path string, opt Options) (*dataset.Dataset, error) {
	format := opt.Format
	if format == "" || format == FormatAuto {
		f, err := Detect(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()

	opt.Logger = opt.log().With(zap.String("path", path))
	return Read(f, format, opt)
}

// Source is anything that yields named input bytes; see package source.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// FromSource opens src and reads it. With an auto format the reader is picked
// from src.Name.
func FromSource(ctx context.Context, src Source, opt Options) (*dataset.Dataset, error) {
	format := opt.Format
	if format == "" || format == FormatAuto {
		f, err := Detect(src.Name())
		if err != nil {
			return nil, err
		}
		format = f
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer rc.Close()

	opt.Logger = opt.log().With(zap.String("source", src.Name()))
	return Read(rc, format, opt)
}

// Read parses r as format.
func Read(r io.Reader, format Format, opt Options) (*dataset.Dataset, error) {
	switch format {
	case FormatCSV:
		return readDelimited(r, opt)
	case FormatTSV:
		opt.Comma = '\t'
		return readDelimited(r, opt)
	case FormatJSON:
		return readJSON(r, opt)
	case FormatXLSX:
		return readXLSX(r, opt)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
