//go:build property
// +build property

// Package runtime_test contains property-based tests for compilation
// determinism, normalization soundness, and engine equivalence.
package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/clauselab/regula/pkg/compiler"
	"github.com/clauselab/regula/pkg/engine"
	"github.com/clauselab/regula/pkg/premise"
	"github.com/clauselab/regula/pkg/rulemodel"
	"github.com/clauselab/regula/pkg/runtime"
)

func propEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func eqExpr(field string, value any) rulemodel.ConditionExpr {
	return rulemodel.ConditionExpr{Kind: rulemodel.KindFieldCheck, Field: field, Op: rulemodel.OpEq, Value: value}
}

func gtExpr(field string, value any) rulemodel.ConditionExpr {
	return rulemodel.ConditionExpr{Kind: rulemodel.KindFieldCheck, Field: field, Op: rulemodel.OpGt, Value: value}
}

// buildExpr assembles a nested condition from generated leaves, with the
// shape selector picking the combinator at each level.
func buildExpr(shape int, leaves []rulemodel.ConditionExpr) rulemodel.ConditionExpr {
	if len(leaves) == 0 {
		return rulemodel.ConditionExpr{Kind: rulemodel.KindAlwaysTrue}
	}
	if len(leaves) == 1 {
		return leaves[0]
	}
	half := len(leaves) / 2
	left := buildExpr(shape/4, leaves[:half])
	right := buildExpr(shape/7, leaves[half:])
	switch shape % 4 {
	case 0:
		return rulemodel.ConditionExpr{Kind: rulemodel.KindAllOf, Exprs: []rulemodel.ConditionExpr{left, right}}
	case 1:
		return rulemodel.ConditionExpr{Kind: rulemodel.KindAnyOf, Exprs: []rulemodel.ConditionExpr{left, right}}
	case 2:
		return rulemodel.ConditionExpr{Kind: rulemodel.KindNoneOf, Exprs: []rulemodel.ConditionExpr{left, right}}
	default:
		return rulemodel.ConditionExpr{Kind: rulemodel.KindNot, Expr: &rulemodel.ConditionExpr{
			Kind: rulemodel.KindAllOf, Exprs: []rulemodel.ConditionExpr{left, right},
		}}
	}
}

func genLeaves() gopter.Gen {
	jur := gen.OneConstOf("EU", "UK", "US", "SG")
	inst := gen.OneConstOf("art", "emt", "utility_token")
	return gopter.CombineGens(jur, inst, gen.IntRange(0, 100), gen.Bool()).Map(
		func(vs []any) []rulemodel.ConditionExpr {
			return []rulemodel.ConditionExpr{
				eqExpr("jurisdiction", vs[0]),
				eqExpr("instrument_type", vs[1]),
				gtExpr("amount", vs[2]),
				eqExpr("authorized", vs[3]),
			}
		})
}

func genScenario() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("EU", "UK", "US", "SG"),
		gen.OneConstOf("art", "emt", "utility_token"),
		gen.IntRange(0, 100),
		gen.Bool(),
	).Map(func(vs []any) rulemodel.Scenario {
		return rulemodel.Scenario{
			"jurisdiction":    vs[0],
			"instrument_type": vs[1],
			"amount":          vs[2],
			"authorized":      vs[3],
		}
	})
}

func applicability(t *testing.T, eng *engine.Engine, cond rulemodel.ConditionExpr, scenario rulemodel.Scenario) bool {
	rule := rulemodel.Rule{
		RuleID:       "probe",
		AppliesIf:    []rulemodel.ConditionExpr{cond},
		DecisionTree: &rulemodel.DecisionNode{Outcome: rulemodel.OutcomePermitted},
	}
	return eng.EvaluateRule(&rule, scenario, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)).Applicable
}

// TestNormalizePreservesApplicability verifies normalization never changes
// what a condition evaluates to.
// Property: eval(expr, scenario) == eval(Normalize(expr), scenario)
func TestNormalizePreservesApplicability(t *testing.T) {
	eng := propEngine(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("normalization preserves evaluation", prop.ForAll(
		func(shape int, leaves []rulemodel.ConditionExpr, scenario rulemodel.Scenario) bool {
			expr := buildExpr(shape, leaves)
			before := applicability(t, eng, expr, scenario)
			after := applicability(t, eng, compiler.Normalize(expr), scenario)
			return before == after
		},
		gen.IntRange(0, 1<<20),
		genLeaves(),
		genScenario(),
	))

	properties.TestingRun(t)
}

// TestCompileDeterministic verifies compilation of the same rule always
// yields the same content hash and premise set.
func TestCompileDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("compilation is deterministic", prop.ForAll(
		func(shape int, leaves []rulemodel.ConditionExpr) bool {
			rule := rulemodel.Rule{
				RuleID:       "r",
				AppliesIf:    []rulemodel.ConditionExpr{buildExpr(shape, leaves)},
				DecisionTree: &rulemodel.DecisionNode{Outcome: rulemodel.OutcomePermitted},
			}
			a, err1 := compiler.Compile(&rule)
			b, err2 := compiler.Compile(&rule)
			if err1 != nil || err2 != nil {
				return false
			}
			if a.ContentHash != b.ContentHash || len(a.Premises) != len(b.Premises) {
				return false
			}
			for i := range a.Premises {
				if a.Premises[i] != b.Premises[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 1<<20),
		genLeaves(),
	))

	properties.TestingRun(t)
}

// TestPremisePruningSound verifies the index never prunes an applicable
// rule.
// Property: applicable(rule, scenario) implies rule in Candidates(scenario)
func TestPremisePruningSound(t *testing.T) {
	eng := propEngine(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("candidates cover every applicable rule", prop.ForAll(
		func(shapes []int, leaves []rulemodel.ConditionExpr, scenario rulemodel.Scenario) bool {
			var compiled []*compiler.CompiledRule
			rules := map[string]rulemodel.Rule{}
			for i, shape := range shapes {
				id := string(rune('a' + i%26))
				rule := rulemodel.Rule{
					RuleID:       id,
					AppliesIf:    []rulemodel.ConditionExpr{buildExpr(shape, leaves)},
					DecisionTree: &rulemodel.DecisionNode{Outcome: rulemodel.OutcomePermitted},
				}
				if _, dup := rules[id]; dup {
					continue
				}
				cr, err := compiler.Compile(&rule)
				if err != nil {
					return false
				}
				rules[id] = rule
				compiled = append(compiled, cr)
			}

			candidates := map[string]bool{}
			for _, id := range premise.Build(compiled).Candidates(scenario) {
				candidates[id] = true
			}
			for id, rule := range rules {
				res := eng.EvaluateRule(&rule, scenario, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
				if res.Applicable && !candidates[id] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, gen.IntRange(0, 1<<20)),
		genLeaves(),
		genScenario(),
	))

	properties.TestingRun(t)
}

// TestRuntimeMatchesEngine verifies the optimized path returns exactly the
// interpretive engine's result for every candidate.
func TestRuntimeMatchesEngine(t *testing.T) {
	eng := propEngine(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("runtime results equal engine results", prop.ForAll(
		func(shapes []int, leaves []rulemodel.ConditionExpr, scenario rulemodel.Scenario) bool {
			var rules []rulemodel.Rule
			for i, shape := range shapes {
				rules = append(rules, rulemodel.Rule{
					RuleID:       string(rune('a' + i)),
					AppliesIf:    []rulemodel.ConditionExpr{buildExpr(shape, leaves)},
					DecisionTree: &rulemodel.DecisionNode{Outcome: rulemodel.OutcomePermitted},
				})
			}

			rt := runtime.New(eng)
			if err := rt.Load(context.Background(), rules); err != nil {
				return false
			}
			fast, err := rt.Evaluate(context.Background(), scenario)
			if err != nil {
				return false
			}

			reference := map[string]rulemodel.DecisionResult{}
			for _, res := range eng.Evaluate(context.Background(), scenario, rules) {
				reference[res.RuleID] = res
			}
			for _, res := range fast {
				want := reference[res.RuleID]
				if res.Applicable != want.Applicable || res.Decision != want.Decision || res.Err != want.Err {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.IntRange(0, 1<<20)),
		genLeaves(),
		genScenario(),
	))

	properties.TestingRun(t)
}
