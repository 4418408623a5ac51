package rulemodel

import (
	"errors"
	"strings"
	"testing"
)

func validRule() Rule {
	return Rule{
		RuleID: "r1",
		AppliesIf: []ConditionExpr{
			{Kind: KindFieldCheck, Field: "instrument_type", Op: OpEq, Value: "art"},
		},
		DecisionTree: &DecisionNode{
			Condition: &ConditionExpr{Kind: KindFieldCheck, Field: "authorized", Op: OpEq, Value: true},
			IfTrue:    &DecisionNode{Outcome: OutcomeAuthorized},
			IfFalse:   &DecisionNode{Outcome: OutcomeNotAuthorized},
		},
		Source: Source{DocumentID: "mica", Article: "Art. 36"},
	}
}

func TestRuleValidate(t *testing.T) {
	r := validRule()
	if err := r.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}
}

func TestRuleValidate_TreeDefects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"no tree", func(r *Rule) { r.DecisionTree = nil }},
		{"leaf without outcome", func(r *Rule) {
			r.DecisionTree.IfTrue = &DecisionNode{}
		}},
		{"leaf with children", func(r *Rule) {
			r.DecisionTree = &DecisionNode{
				Outcome: OutcomePermitted,
				IfTrue:  &DecisionNode{Outcome: OutcomeExempt},
				IfFalse: &DecisionNode{Outcome: OutcomeProhibited},
			}
		}},
		{"branch missing child", func(r *Rule) { r.DecisionTree.IfFalse = nil }},
		{"branch with bad condition", func(r *Rule) {
			r.DecisionTree.Condition = &ConditionExpr{Kind: KindFieldCheck, Op: OpEq, Value: true}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRule()
			tc.mutate(&r)
			err := r.Validate()
			if !errors.Is(err, ErrMalformedTree) {
				t.Fatalf("err = %v, want ErrMalformedTree", err)
			}
		})
	}
}

func TestRuleValidate_PathsInErrors(t *testing.T) {
	r := validRule()
	r.DecisionTree.IfFalse = &DecisionNode{
		Condition: &ConditionExpr{Kind: KindAlwaysTrue},
		IfTrue:    &DecisionNode{},
		IfFalse:   &DecisionNode{Outcome: OutcomeExempt},
	}
	err := r.Validate()
	if err == nil || !strings.Contains(err.Error(), "root.f.t") {
		t.Fatalf("err = %v, want path root.f.t", err)
	}
}

func TestConditionExprValidate(t *testing.T) {
	cases := []struct {
		name string
		expr ConditionExpr
		ok   bool
	}{
		{"field check", ConditionExpr{Kind: KindFieldCheck, Field: "x", Op: OpEq, Value: 1}, true},
		{"field check value_from", ConditionExpr{Kind: KindFieldCheck, Field: "x", Op: OpLt, ValueFrom: "limit"}, true},
		{"field check no field", ConditionExpr{Kind: KindFieldCheck, Op: OpEq, Value: 1}, false},
		{"field check bad op", ConditionExpr{Kind: KindFieldCheck, Field: "x", Op: "matches", Value: 1}, false},
		{"field check no value", ConditionExpr{Kind: KindFieldCheck, Field: "x", Op: OpEq}, false},
		{"field check both values", ConditionExpr{Kind: KindFieldCheck, Field: "x", Op: OpEq, Value: 1, ValueFrom: "y"}, false},
		{"typed check", ConditionExpr{Kind: KindJurisdiction, Value: "EU"}, true},
		{"typed check non-string", ConditionExpr{Kind: KindJurisdiction, Value: 7}, false},
		{"not", ConditionExpr{Kind: KindNot, Expr: &ConditionExpr{Kind: KindAlwaysTrue}}, true},
		{"not without operand", ConditionExpr{Kind: KindNot}, false},
		{"nested defect", ConditionExpr{Kind: KindAllOf, Exprs: []ConditionExpr{{Kind: KindFieldCheck}}}, false},
		{"empty group", ConditionExpr{Kind: KindAnyOf}, true},
		{"always", ConditionExpr{Kind: KindAlwaysFalse}, true},
		{"cel", ConditionExpr{Kind: KindCEL, Expression: "scenario.x > 1"}, true},
		{"cel empty", ConditionExpr{Kind: KindCEL}, false},
		{"unknown kind", ConditionExpr{Kind: "regex_match"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.expr.Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("err = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestCustomOutcome(t *testing.T) {
	if !OutcomeRequiresReview.Known() {
		t.Error("closed-set outcome not recognized")
	}
	custom := DecisionOutcome("escalate_to_college")
	if custom.Known() {
		t.Error("free-form outcome claimed as closed-set")
	}

	// Custom outcomes are valid leaves and carried through verbatim.
	r := validRule()
	r.DecisionTree = &DecisionNode{Outcome: custom}
	if err := r.Validate(); err != nil {
		t.Fatalf("custom outcome rejected: %v", err)
	}
}

func TestEffectiveWindow(t *testing.T) {
	r := validRule()
	r.EffectiveFrom = "2024-06-30"
	r.EffectiveTo = "2026-01-01T00:00:00Z"

	from, to, err := r.EffectiveWindow()
	if err != nil {
		t.Fatalf("EffectiveWindow: %v", err)
	}
	if from.Format("2006-01-02") != "2024-06-30" {
		t.Errorf("from = %v", from)
	}
	if to.Year() != 2026 {
		t.Errorf("to = %v", to)
	}

	r.EffectiveFrom = "June 2024"
	if err := r.Validate(); err == nil {
		t.Error("unparseable effective_from accepted")
	}
}
