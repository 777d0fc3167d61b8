package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"dataclean/internal/transformer/builtin"

	"github.com/ncruces/go-strftime"
	"github.com/robfig/cron/v3"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users
	// but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "clean.rules[1].name"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and output names",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateClean(p.Clean)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	if p.Schedule != "" {
		if _, err := cron.ParseStandard(p.Schedule); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "schedule",
				Message:  fmt.Sprintf("invalid cron spec %q: %v", p.Schedule, err),
			})
		}
	}
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}

	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		h := s.HTTP
		if u, err := url.Parse(h.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.url",
				Message:  fmt.Sprintf("http source requires an absolute http(s) URL, got %q", h.URL),
			})
		}
		if h.Timeout != "" {
			if _, err := time.ParseDuration(h.Timeout); err != nil {
				issues = append(issues, Issue{Severity: SeverityError, Path: "source.http.timeout", Message: err.Error()})
			}
		}
		if h.MaxRetries < 0 {
			issues = append(issues, Issue{Severity: SeverityError, Path: "source.http.max_retries", Message: "max_retries must not be negative"})
		}
		if h.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.http.insecure_skip_verify",
				Message:  "TLS certificate verification is disabled",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; ensure a matching implementation exists", s.Kind),
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	switch p.Kind {
	case "", "auto", "csv", "tsv", "json", "xlsx":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q; use auto, csv, tsv, json or xlsx", p.Kind),
		})
	}
	if n := p.Options.Int("max_rows", 0); n < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.max_rows",
			Message:  "max_rows must not be negative",
		})
	}
	return issues
}

func validateClean(c Clean) []Issue {
	var issues []Issue

	issues = append(issues, normalizedNames("clean.pii_columns", c.PIIColumns)...)
	issues = append(issues, normalizedNames("clean.duplicate_keys", c.DuplicateKeys)...)

	if c.DateFormat != "" {
		if err := CheckDateFormat(c.DateFormat); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "clean.date_format",
				Message:  err.Error(),
			})
		}
	}
	if c.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "clean.workers",
			Message:  "workers must not be negative",
		})
	}

	seen := map[string]int{}
	for i, r := range c.Rules {
		path := fmt.Sprintf("clean.rules[%d]", i)
		if strings.TrimSpace(r.Name) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".name", Message: "rule name must not be empty"})
		} else if j, dup := seen[r.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".name",
				Message:  fmt.Sprintf("rule %q also defined at clean.rules[%d]; the later definition replaces it", r.Name, j),
			})
		} else {
			seen[r.Name] = i
		}
		switch {
		case r.Script == "" && r.Path == "":
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: "rule needs either script or path"})
		case r.Script != "" && r.Path != "":
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: "rule sets both script and path"})
		}
	}
	return issues
}

// normalizedNames warns about names that can never match a column, because
// every column name is normalized before these settings are used.
func normalizedNames(path string, names []string) []Issue {
	var issues []Issue
	for i, n := range names {
		if norm := builtin.NormalizeName(n); norm != n {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("%s[%d]", path, i),
				Message:  fmt.Sprintf("column %q is not normalized and will never match; use %q", n, norm),
			})
		}
	}
	return issues
}

// CheckDateFormat reports whether format is a strftime layout that can be
// rendered and read back.
func CheckDateFormat(format string) error {
	probe := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	if _, err := strftime.Parse(format, strftime.Format(format, probe)); err != nil {
		return fmt.Errorf("date_format %q cannot be parsed back: %v", format, err)
	}
	return nil
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	switch o.Format {
	case "", "csv", "json", "xlsx":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.format",
			Message:  fmt.Sprintf("unsupported output format %q; use csv, json or xlsx", o.Format),
		})
	}
	if o.Zip && strings.TrimSpace(o.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.dir",
			Message:  "zip requested without output.dir; the bundle is written to the working directory",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return nil
	}

	known := map[string]struct{}{
		"postgres": {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	db := s.DB
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty (or set DATACLEAN_DSN)",
		})
	}
	if strings.TrimSpace(db.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.table",
			Message:  "storage.db.table must not be empty",
		})
	}
	if db.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	issues = append(issues, normalizedNames("storage.db.columns", db.Columns)...)
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url (or PUSHGATEWAY_URL)",
			}}
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr not set; the statsd client falls back to DD_AGENT_HOST",
			}}
		}
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; use none, pushgateway or datadog", m.Backend),
		}}
	}
	return nil
}
