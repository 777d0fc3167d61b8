package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataclean/internal/dataset"
)

// readJSON accepts a top-level array of objects or a stream of objects
// (NDJSON). Columns follow the order keys are first seen. Nested objects and
// arrays are kept as their JSON text.
func readJSON(r io.Reader, opt Options) (*dataset.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	na := opt.naSet()

	var (
		order []string
		seen  = map[string]bool{}
		recs  []dataset.Record
	)
	next := func() error {
		rec, keys, err := decodeObject(dec, na)
		if err != nil {
			return fmt.Errorf("ingest: record %d: %w", len(recs), err)
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
		recs = append(recs, rec)
		return nil
	}
	full := func() bool { return opt.MaxRows > 0 && len(recs) >= opt.MaxRows }

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return dataset.New()
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: decode json: %w", err)
	}
	switch tok {
	case json.Delim('['):
		for dec.More() && !full() {
			if err := expectObject(dec); err != nil {
				return nil, err
			}
			if err := next(); err != nil {
				return nil, err
			}
		}
	case json.Delim('{'):
		if err := next(); err != nil {
			return nil, err
		}
		for dec.More() && !full() {
			if err := expectObject(dec); err != nil {
				return nil, err
			}
			if err := next(); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: top-level JSON must be an array of objects or a stream of objects", ErrUnsupportedFormat)
	}
	return dataset.FromRecords(order, recs)
}

func expectObject(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("ingest: decode json: %w", err)
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("ingest: expected object, got %v", tok)
	}
	return nil
}

// decodeObject reads the members of an object whose opening brace has been
// consumed, including the closing brace.
func decodeObject(dec *json.Decoder, na map[string]struct{}) (dataset.Record, []string, error) {
	rec := dataset.Record{}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key], err = jsonValue(v, na)
		if err != nil {
			return nil, nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return rec, keys, nil
}

func jsonValue(v any, na map[string]struct{}) (any, error) {
	switch x := v.(type) {
	case nil, bool, json.Number:
		return x, nil
	case string:
		if _, ok := na[strings.TrimSpace(x)]; ok {
			return nil, nil
		}
		return x, nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}
