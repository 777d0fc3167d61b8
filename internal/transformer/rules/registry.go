// Package rules holds user-supplied cleaning rules. Rules are named dataset
// transformations applied after every built-in stage, in registration order.
// Each rule works on its own copy of the dataset, so a failing rule never
// leaves a half-applied result behind.
package rules

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"dataclean/internal/dataset"
	"dataclean/internal/transformer"

	"go.uber.org/zap"
)

var (
	// ErrNilResult is returned when a rule succeeds without a dataset.
	ErrNilResult = errors.New("rules: rule returned no dataset")
	// ErrEmptyName is returned when registering a rule without a name.
	ErrEmptyName = errors.New("rules: rule name is empty")
)

// Rule is a named dataset transformation.
type Rule interface {
	Name() string
	Apply(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error)
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error)
}

func (f RuleFunc) Name() string { return f.RuleName }

func (f RuleFunc) Apply(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	return f.Fn(ctx, ds)
}

// Registry is an ordered set of rules keyed by name.
type Registry struct {
	mu    sync.RWMutex
	rules []Rule
	index map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends rule. Registering a name again replaces the earlier rule
// in its original position.
func (r *Registry) Register(rule Rule) error {
	if rule == nil {
		return errors.New("rules: nil rule")
	}
	name := rule.Name()
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[name]; ok {
		r.rules[i] = rule
		return nil
	}
	r.index[name] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// Add registers fn under name.
func (r *Registry) Add(name string, fn func(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error)) error {
	if fn == nil {
		return fmt.Errorf("rules: nil function for %q", name)
	}
	return r.Register(RuleFunc{RuleName: name, Fn: fn})
}

// Rules returns a snapshot of the registered rules in order.
func (r *Registry) Rules() []Rule {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.rules...)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Stage returns the pipeline stage that applies a snapshot of the registry.
func (r *Registry) Stage() transformer.Stage {
	return stage{rules: r.Rules()}
}

type stage struct {
	rules []Rule
}

func (stage) Name() string { return "custom_rules" }

// Apply runs each rule on a clone of the current dataset. A rule that fails,
// panics or returns an invalid dataset is audited and skipped.
func (s stage) Apply(ctx context.Context, env *transformer.Env, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if len(s.rules) == 0 || ds.Rows() == 0 {
		return ds, nil
	}
	log := env.Log()
	for _, rule := range s.rules {
		if err := ctx.Err(); err != nil {
			return ds, nil
		}
		out, err := run(ctx, rule, ds.Clone())
		if err != nil {
			env.Audit.Appendf("Failed to apply custom rule %s: %v", rule.Name(), err)
			log.Warn("custom rule failed", zap.String("rule", rule.Name()), zap.Error(err))
			continue
		}
		ds = out
		env.Audit.Appendf("Applied custom rule: %s", rule.Name())
	}
	return ds, nil
}

func run(ctx context.Context, rule Rule, ds *dataset.Dataset) (out *dataset.Dataset, err error) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Debug("custom rule panic", zap.String("rule", rule.Name()), zap.ByteString("stack", debug.Stack()))
			out, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	out, err = rule.Apply(ctx, ds)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNilResult
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
