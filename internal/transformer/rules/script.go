package rules

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dataclean/internal/dataset"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ScriptFunc is the entry point a script rule must define:
//
//	func Apply(rows []map[string]interface{}) ([]map[string]interface{}, error)
//
// Rows carry nil for missing cells and string, float64, bool or time.Time
// otherwise.
type ScriptFunc = func(rows []map[string]interface{}) ([]map[string]interface{}, error)

// Script is a rule written in Go source and run by the yaegi interpreter.
type Script struct {
	name string
	fn   ScriptFunc
}

// NewScript compiles src once. A source without a package clause is placed
// in package main.
func NewScript(name, src string) (*Script, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("rules: load stdlib symbols: %w", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(src), "package ") {
		src = "package main\n\n" + src
	}
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("rules: compile %s: %w", name, err)
	}
	v, err := i.Eval("Apply")
	if err != nil {
		return nil, fmt.Errorf("rules: %s has no Apply function: %w", name, err)
	}
	fn, ok := v.Interface().(ScriptFunc)
	if !ok {
		return nil, fmt.Errorf("rules: %s: Apply must be func([]map[string]interface{}) ([]map[string]interface{}, error), got %s", name, v.Type())
	}
	return &Script{name: name, fn: fn}, nil
}

// LoadScript reads and compiles a script file.
func LoadScript(name, path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return NewScript(name, string(b))
}

func (s *Script) Name() string { return s.name }

// Apply converts the dataset to rows, runs the script and rebuilds a dataset
// from its result. Columns keep their original order; date columns keep
// their render layout.
func (s *Script) Apply(_ context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	rows, err := s.fn(ds.Records())
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return nil, ErrNilResult
	}
	out, err := dataset.FromRecords(ds.Names(), rows)
	if err != nil {
		return nil, err
	}
	for _, c := range out.Columns() {
		if c.Kind != dataset.KindDate {
			continue
		}
		if src := ds.Column(c.Name); src != nil && src.Layout != "" {
			c.Layout = src.Layout
		}
	}
	return out, nil
}
