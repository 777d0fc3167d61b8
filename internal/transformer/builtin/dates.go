package builtin

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"dataclean/internal/dataset"
	"dataclean/internal/transformer"

	"github.com/ncruces/go-strftime"
	"go.uber.org/zap"
)

// StandardizeDates parses every column whose name contains "date", "dob" or
// "time" into date cells rendered with one strftime Format.
//
// Each cell goes through two passes. Pass one tries the known text layouts,
// starting with the layout that matches most of the column. Pass two reads
// what is left as a spreadsheet serial day number. Cells that fail both become
// missing. A column that cannot hold dates at all (booleans) is reported as a
// failed conversion and left unchanged.
type StandardizeDates struct {
	// Format is the strftime output format; empty means %Y-%m-%d.
	Format string
}

func (StandardizeDates) Name() string { return "standardize_dates" }

// IsDateColumn reports whether a normalized column name is a date target.
func IsDateColumn(name string) bool {
	return strings.Contains(name, "date") || strings.Contains(name, "dob") || strings.Contains(name, "time")
}

var errBoolDates = errors.New("boolean values are not convertible to dates")

type dateResult struct {
	col      *dataset.Column
	parsed   int
	serials  int
	unparsed int
	err      error
}

func (s StandardizeDates) Apply(ctx context.Context, env *transformer.Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	format := s.Format
	if format == "" {
		format = dataset.DefaultDateLayout
	}

	cols := ds.Columns()
	var targets []int
	for i, c := range cols {
		if IsDateColumn(c.Name) {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return ds, nil
	}

	results, err := transformer.EachColumn(ctx, env.Parallelism(), targets, func(_ context.Context, i int) dateResult {
		return standardizeColumn(cols[i], format)
	})
	if err != nil {
		return nil, err
	}

	log := env.Log()
	for n, i := range targets {
		r := results[n]
		name := cols[i].Name
		if r.err == nil {
			r.err = ds.ReplaceColumn(i, r.col)
		}
		if r.err != nil {
			env.Audit.Appendf("Date conversion failed for %s: %v", name, r.err)
			continue
		}
		log.Debug("dates standardized",
			zap.String("column", name),
			zap.Int("parsed", r.parsed),
			zap.Int("serials", r.serials),
			zap.Int("unparsed", r.unparsed),
		)
	}
	return ds, nil
}

func standardizeColumn(col *dataset.Column, format string) dateResult {
	if col.Kind == dataset.KindBool {
		return dateResult{err: errBoolDates}
	}

	raw := make([]string, len(col.Cells))
	var samples []string
	for i, c := range col.Cells {
		if c.IsMissing() || c.Kind() == dataset.KindDate {
			continue
		}
		raw[i] = strings.TrimSpace(c.String(""))
		if raw[i] != "" && len(samples) < maxLayoutSamples {
			samples = append(samples, raw[i])
		}
	}
	best := selectBestLayout(samples, allLayouts)

	res := dateResult{}
	cells := make([]dataset.Cell, len(col.Cells))
	for i, c := range col.Cells {
		switch {
		case c.IsMissing():
			cells[i] = dataset.Missing()
			continue
		case c.Kind() == dataset.KindDate:
			cells[i] = dataset.Date(truncate(c.Time(), format))
			res.parsed++
			continue
		}
		if t, ok := parseText(raw[i], best); ok {
			cells[i] = dataset.Date(truncate(t, format))
			res.parsed++
			continue
		}
		if t, ok := parseSerial(c, raw[i]); ok {
			cells[i] = dataset.Date(truncate(t, format))
			res.serials++
			continue
		}
		cells[i] = dataset.Missing()
		res.unparsed++
	}

	out := dataset.NewColumn(col.Name, dataset.KindDate, cells...)
	out.Layout = format
	res.col = out
	return res
}

// truncate drops whatever precision format cannot express, so a cell holds
// exactly the value it renders as. The wall clock of t is kept; an offset
// timestamp renders on its own calendar day.
func truncate(t time.Time, format string) time.Time {
	if p, err := strftime.Parse(format, strftime.Format(format, t)); err == nil {
		return p
	}
	return t
}

func parseText(s, best string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if best != "" {
		if t, err := time.Parse(best, s); err == nil {
			return t, true
		}
	}
	for _, l := range allLayouts {
		if l == best {
			continue
		}
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Spreadsheet serial dates count days from 1899-12-30. The 1900 date system
// treats 1900 as a leap year, so serials below 61 are one day behind the
// real calendar.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	serialLeapBug = 61
	serialMax     = 2958466 // 10000-01-01
)

func parseSerial(c dataset.Cell, raw string) (time.Time, bool) {
	var f float64
	if c.Kind() == dataset.KindNumeric {
		f = c.Float()
	} else {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return time.Time{}, false
		}
		f = v
	}
	return SerialToTime(f)
}

// SerialToTime converts a spreadsheet serial day number to a time. The
// fractional part is the time of day.
func SerialToTime(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial <= 0 || serial >= serialMax {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	if days < serialLeapBug {
		days++
	}
	frac := serial - math.Floor(serial)
	t := serialEpoch.AddDate(0, 0, int(days))
	return t.Add(time.Duration(math.Round(frac * float64(24*time.Hour/time.Millisecond))) * time.Millisecond), true
}

const maxLayoutSamples = 1000

// Known layouts, dates first. Slash and dash forms use the unpadded
// directives so "1/2/2006" also reads "01/02/2006". Year-month and year-only
// forms start on the first day of the period; they are tried before the
// serial pass so "2021" is a year, not day 2021.
var allLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"1/2/2006",
	"1-2-2006",
	"2/1/2006",
	"2.1.2006",
	"1/2/06",
	"1-2-06",
	"2 Jan 2006",
	"2-Jan-2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2006.01.02",
	"02-Jan-06",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"2006-01",
	"2006",

	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006/01/02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"2/1/2006 15:04:05",
	"2.1.2006 15:04",
	"Jan 2 2006 15:04",
	"Jan 2 2006 15:04:05",
	"Jan 2, 2006 15:04",
	time.RFC1123Z,
	time.RFC1123,
}

// layoutPreference breaks ties between layouts that match the same number of
// samples. Month-first wins over day-first for ambiguous slash dates.
func layoutPreference(layout string) int {
	switch layout {
	case "2006-01-02", "2006/01/02", "20060102", time.RFC3339Nano, time.RFC3339:
		return 4
	case "1/2/2006", "1-2-2006", "1/2/06", "1-2-06", "1/2/2006 15:04:05", "1/2/2006 15:04":
		return 3
	case "2/1/2006", "2.1.2006", "2/1/2006 15:04:05", "2.1.2006 15:04":
		return 2
	default:
		return 1
	}
}

// selectBestLayout scores each layout by how many samples it parses. The
// highest score wins; ties go to the higher preference, then to the earlier
// layout. It returns "" when no layout parses any sample.
func selectBestLayout(samples, layouts []string) string {
	if len(samples) == 0 || len(layouts) == 0 {
		return ""
	}
	scores := make([]int, len(layouts))
	for _, s := range samples {
		for i, lay := range layouts {
			if _, err := time.Parse(lay, s); err == nil {
				scores[i]++
			}
		}
	}

	bestIdx, bestScore, bestPref := -1, 0, -1
	for i, lay := range layouts {
		sc := scores[i]
		if sc == 0 || sc < bestScore {
			continue
		}
		p := layoutPreference(lay)
		if sc > bestScore || p > bestPref {
			bestIdx, bestScore, bestPref = i, sc, p
		}
	}
	if bestIdx < 0 {
		return ""
	}
	return layouts[bestIdx]
}
