// Package config defines the serializable configuration model for a cleaning
// job. Job files may be written in YAML or JSON; both are decoded through the
// JSON struct tags below.
//
// Example (trimmed):
//
//	job: nightly_patients
//	source: { kind: file, file: { path: data/patients.csv } }
//	parser: { kind: auto, options: { comma: ";" } }
//	clean:
//	  pii_columns: [name, email]
//	  duplicate_keys: [patient_id]
//	  date_format: "%Y-%m-%d"
//	  rules:
//	    - { name: drop_test_rows, path: rules/drop_test_rows.go }
//	output: { dir: out, format: csv, include_report: true, zip: false }
//	storage: { kind: sqlite, db: { dsn: "file:clean.db", table: patients, auto_create_table: true } }
//	metrics: { backend: none }
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// Pipeline is the top-level object decoded from a job file.
type Pipeline struct {
	// Job names the run in logs, metrics and output files.
	Job string `json:"job"`

	// Source describes where input data comes from (e.g., local file).
	Source Source `json:"source"`

	// Parser configures how raw bytes are turned into a dataset.
	Parser Parser `json:"parser"`

	// Clean holds the cleaning stage settings.
	Clean Clean `json:"clean"`

	// Output describes the files written after a run.
	Output Output `json:"output"`

	// Storage optionally loads the cleaned dataset into a database.
	Storage Storage `json:"storage"`

	Metrics Metrics `json:"metrics"`

	// Schedule is an optional cron spec; when set the CLI keeps running and
	// cleans on every tick.
	Schedule string `json:"schedule,omitempty"`
}

// Source identifies the data source. Additional kinds can be added over time.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`

	// HTTP carries options for the "http" source kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`
}

// SourceHTTP downloads the input from a URL. The format is taken from the
// parser kind, or from the last path segment of the URL.
type SourceHTTP struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	// Timeout is a Go duration string, e.g. "45s".
	Timeout            string `json:"timeout"`
	MaxRetries         int    `json:"max_retries"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
}

// Parser selects how to parse the raw source into columns.
type Parser struct {
	// Kind is "auto" (by file extension), "csv", "tsv", "json" or "xlsx".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the reader.
	// Typical keys: comma (string), na_values ([]string), max_rows (int),
	// sheet (string, xlsx only).
	Options Options `json:"options"`
}

// Clean configures the cleaning stages.
type Clean struct {
	PIIColumns    []string `json:"pii_columns"`
	DuplicateKeys []string `json:"duplicate_keys"`

	// DateFormat is a strftime layout; empty means %Y-%m-%d.
	DateFormat string `json:"date_format"`

	// Workers bounds per-column parallelism; zero means one per CPU.
	Workers int `json:"workers"`

	// Rules are script rules applied after the built-in stages, in order.
	Rules []Rule `json:"rules"`
}

// Rule is a script rule given inline or by file path.
type Rule struct {
	Name   string `json:"name"`
	Script string `json:"script,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Output controls the exported files.
type Output struct {
	Dir string `json:"dir"`
	// Name is the base file name; defaults to the input file's base name.
	Name          string `json:"name"`
	Format        string `json:"format"`
	IncludeReport bool   `json:"include_report"`
	Zip           bool   `json:"zip"`
}

// Storage selects the database sink. An empty Kind disables it.
type Storage struct {
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the DB sink.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn"`

	// Table is the destination table name (optionally schema-qualified).
	Table string `json:"table"`

	// Columns restricts and orders the loaded columns. Empty means all
	// columns of the cleaned dataset.
	Columns []string `json:"columns"`

	// AutoCreateTable creates the table from the column kinds when missing.
	AutoCreateTable bool `json:"auto_create_table"`

	// BatchSize is the number of rows per CopyFrom call.
	BatchSize int `json:"batch_size"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr"`
}

// Load reads a YAML or JSON job file.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(b)
}

// Decode parses YAML or JSON bytes into a Pipeline.
func Decode(b []byte) (Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	return p, nil
}

// ApplyEnv fills settings the file left empty from environment variables:
// METRICS_BACKEND, PUSHGATEWAY_URL, DATADOG_ADDR and DATACLEAN_DSN.
func (p *Pipeline) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = strings.TrimSpace(getenv(key))
		}
	}
	fill(&p.Metrics.Backend, "METRICS_BACKEND")
	fill(&p.Metrics.PushgatewayURL, "PUSHGATEWAY_URL")
	fill(&p.Metrics.DatadogAddr, "DATADOG_ADDR")
	if p.Storage.Kind != "" {
		fill(&p.Storage.DB.DSN, "DATACLEAN_DSN")
	}
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null "options" object to a non-nil,
// empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
