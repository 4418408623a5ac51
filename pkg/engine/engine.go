// Package engine implements the interpretive decision engine: it filters a
// rule set down to the rules applicable to a scenario and walks each
// applicable rule's decision tree, producing a trace and outcome.
//
// This is the semantic reference implementation. The compiled runtime
// (pkg/runtime) narrows candidates first but routes every candidate through
// this same walking logic, which is what guarantees the two paths cannot
// diverge.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/clauselab/regula/pkg/rulemodel"
)

// Engine evaluates rules against scenarios. Evaluation is read-only over
// rule data and safe for arbitrarily many concurrent callers.
type Engine struct {
	logger *slog.Logger
	cel    *celEvaluator

	// now supplies "now" when a scenario carries no evaluation_date.
	// Injectable for deterministic tests.
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the default-date source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs an Engine.
func New(opts ...Option) (*Engine, error) {
	cel, err := newCELEvaluator()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		logger: slog.Default(),
		cel:    cel,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate runs every rule against the scenario and returns one
// DecisionResult per rule, in input order. Per-rule failures never abort
// sibling rules. For a fixed rule set and scenario (and evaluation date)
// the output is byte-for-byte deterministic.
func (e *Engine) Evaluate(ctx context.Context, scenario rulemodel.Scenario, rules []rulemodel.Rule) []rulemodel.DecisionResult {
	results := make([]rulemodel.DecisionResult, 0, len(rules))
	at := e.evaluationDate(scenario)
	for i := range rules {
		select {
		case <-ctx.Done():
			return results
		default:
		}
		results = append(results, e.EvaluateRule(&rules[i], scenario, at))
	}
	return results
}

// EvaluateRule evaluates a single rule against the scenario at the given
// date. A rule outside its effective window, or whose applies_if
// conjunction is false, yields applicable=false with an empty trace.
func (e *Engine) EvaluateRule(rule *rulemodel.Rule, scenario rulemodel.Scenario, at time.Time) rulemodel.DecisionResult {
	res := rulemodel.DecisionResult{
		RuleID:       rule.RuleID,
		RuleMetadata: rule.Metadata,
	}

	if !rule.InEffect(at) {
		return res
	}

	for i := range rule.AppliesIf {
		ok, err := e.evalExpr(&rule.AppliesIf[i], scenario)
		if err != nil {
			res.Err = err.Error()
			e.logger.Error("applicability evaluation failed",
				"rule_id", rule.RuleID, "error", err)
			return res
		}
		if !ok {
			return res
		}
	}
	res.Applicable = true

	if err := e.walk(rule.DecisionTree, scenario, &res); err != nil {
		res.Err = err.Error()
		e.logger.Error("decision tree walk failed",
			"rule_id", rule.RuleID, "error", err)
	}
	return res
}

// EvaluationDate resolves the date a scenario should be evaluated at: the
// scenario's explicit evaluation_date if present, otherwise now.
func (e *Engine) EvaluationDate(scenario rulemodel.Scenario) time.Time {
	return e.evaluationDate(scenario)
}

func (e *Engine) evaluationDate(scenario rulemodel.Scenario) time.Time {
	if at, ok := scenario.EvaluationDate(); ok {
		return at
	}
	return e.now()
}
