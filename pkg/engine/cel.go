package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/clauselab/regula/pkg/rulemodel"
)

// celEvaluator compiles and caches CEL condition programs. Expressions see
// the scenario as a map variable named "scenario", e.g.
// `scenario.instrument_type in ['art', 'emt']`.
type celEvaluator struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]cel.Program
}

func newCELEvaluator() (*celEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("scenario", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("engine: cel environment: %w", err)
	}
	return &celEvaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// eval runs a CEL expression against the scenario. Any compile or runtime
// failure (including access to an absent field) fails closed to false;
// evaluation stays total and pure.
func (c *celEvaluator) eval(expression string, scenario rulemodel.Scenario, logger *slog.Logger) bool {
	prg, err := c.program(expression)
	if err != nil {
		logger.Warn("cel condition rejected", "expression", expression, "error", err)
		return false
	}

	out, _, err := prg.Eval(map[string]any{"scenario": map[string]any(scenario)})
	if err != nil {
		// Typically a missing-key lookup: scenarios are partial by design.
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func (c *celEvaluator) program(expression string) (cel.Program, error) {
	c.mu.RLock()
	prg, hit := c.cache[expression]
	c.mu.RUnlock()
	if hit {
		return prg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prg, hit = c.cache[expression]; hit {
		return prg, nil
	}

	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	c.cache[expression] = prg
	return prg, nil
}
