package roles

import (
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/reedcms/reed/internal/corerr"
)

// MetaSource is the subset of the Store's get_meta surface the
// conditional-permissions evaluator needs to resolve a rule_name to its
// CEL expression (SPEC_FULL.md §4.6). Defined here, not imported from
// internal/store, so roles and store stay decoupled.
type MetaSource interface {
	GetMeta(key string) (string, bool)
}

// conditionEvaluator compiles and caches CEL programs per rule_name,
// invalidated whenever the caller reports the backing meta key changed.
type conditionEvaluator struct {
	meta MetaSource
	env  *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func newConditionEvaluator(meta MetaSource) (*conditionEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("auth", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("ctx", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, &corerr.ConfigError{Component: "roles.conditionEvaluator", Reason: err.Error()}
	}
	return &conditionEvaluator{meta: meta, env: env, programs: make(map[string]cel.Program)}, nil
}

// Invalidate drops the compiled program for ruleName, e.g. after
// set_meta("rule.<rule_name>", ...) rewrites its expression.
func (e *conditionEvaluator) Invalidate(ruleName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.programs, ruleName)
}

func (e *conditionEvaluator) program(ruleName string) (cel.Program, error) {
	e.mu.RLock()
	if p, ok := e.programs[ruleName]; ok {
		e.mu.RUnlock()
		return p, nil
	}
	e.mu.RUnlock()

	expr, ok := e.meta.GetMeta("rule." + ruleName)
	if !ok {
		return nil, &corerr.NotFound{Resource: "rule", Context: ruleName}
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &corerr.ValidationError{Field: "rule", Value: expr, Constraint: issues.Err().Error()}
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, &corerr.ValidationError{Field: "rule", Value: expr, Constraint: err.Error()}
	}

	e.mu.Lock()
	e.programs[ruleName] = program
	e.mu.Unlock()
	return program, nil
}

// Evaluate runs the CEL rule registered for ruleName against auth/ctx
// and reports its boolean result.
func (e *conditionEvaluator) Evaluate(ruleName string, auth, reqCtx map[string]any) (bool, error) {
	program, err := e.program(ruleName)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"auth": auth, "ctx": reqCtx})
	if err != nil {
		return false, &corerr.ValidationError{Field: "rule", Value: ruleName, Constraint: err.Error()}
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, &corerr.ValidationError{Field: "rule", Value: ruleName, Constraint: "expression must evaluate to a boolean"}
	}
	return b, nil
}
