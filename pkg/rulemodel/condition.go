// Package rulemodel defines the typed representation of a regulatory rule:
// condition expressions, decision trees, source references, and the result
// shapes produced by evaluation. Pure data; behavior is limited to
// (de)serialization, structural validation, and human-readable rendering.
package rulemodel

import (
	"fmt"
	"sort"
	"strings"
)

// ExprKind discriminates the ConditionExpr union.
type ExprKind string

const (
	KindFieldCheck     ExprKind = "field_check"
	KindActorType      ExprKind = "actor_type_check"
	KindInstrumentType ExprKind = "instrument_type_check"
	KindActivityType   ExprKind = "activity_type_check"
	KindJurisdiction   ExprKind = "jurisdiction_check"
	KindAllOf          ExprKind = "all_of"
	KindAnyOf          ExprKind = "any_of"
	KindNoneOf         ExprKind = "none_of"
	KindNot            ExprKind = "not"
	KindAlwaysTrue     ExprKind = "always_true"
	KindAlwaysFalse    ExprKind = "always_false"
	KindCEL            ExprKind = "cel"
)

// Operator is a FieldCheck comparison operator.
type Operator string

const (
	OpEq    Operator = "eq"
	OpNe    Operator = "ne"
	OpLt    Operator = "lt"
	OpLe    Operator = "le"
	OpGt    Operator = "gt"
	OpGe    Operator = "ge"
	OpIn    Operator = "in"
	OpNotIn Operator = "not_in"
)

// ValidOperator reports whether op is one of the defined comparison operators.
func ValidOperator(op Operator) bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn, OpNotIn:
		return true
	}
	return false
}

// ConditionExpr is the recursive tagged union of condition expressions.
// Kind selects which of the remaining fields are meaningful:
//
//   - field_check: Field, Op, and one of Value / ValueFrom
//   - actor_type_check, instrument_type_check, activity_type_check,
//     jurisdiction_check: Value (the expected category)
//   - all_of, any_of, none_of: Exprs
//   - not: Expr
//   - always_true, always_false: nothing
//   - cel: Expression (a CEL program over the scenario)
//
// Trees are finite, acyclic, and side-effect-free; evaluating one against a
// scenario is a pure function.
type ConditionExpr struct {
	Kind ExprKind `json:"kind" yaml:"kind"`

	Field string   `json:"field,omitempty" yaml:"field,omitempty"`
	Op    Operator `json:"op,omitempty" yaml:"op,omitempty"`
	Value any      `json:"value,omitempty" yaml:"value,omitempty"`
	// ValueFrom names another scenario field to compare against instead of
	// a literal Value.
	ValueFrom string `json:"value_from,omitempty" yaml:"value_from,omitempty"`

	Exprs []ConditionExpr `json:"exprs,omitempty" yaml:"exprs,omitempty"`
	Expr  *ConditionExpr  `json:"expr,omitempty" yaml:"expr,omitempty"`

	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// TypedCheckField maps a typed ontology check kind to the scenario field it
// inspects. Returns "" for non-typed kinds.
func TypedCheckField(k ExprKind) string {
	switch k {
	case KindActorType:
		return "actor_type"
	case KindInstrumentType:
		return "instrument_type"
	case KindActivityType:
		return "activity_type"
	case KindJurisdiction:
		return "jurisdiction"
	}
	return ""
}

// String renders the expression in a compact human-readable form. Both
// evaluation paths use this rendering for trace steps, so it must stay
// deterministic.
func (e *ConditionExpr) String() string {
	switch e.Kind {
	case KindFieldCheck:
		rhs := formatValue(e.Value)
		if e.ValueFrom != "" {
			rhs = "$" + e.ValueFrom
		}
		return fmt.Sprintf("%s %s %s", e.Field, e.Op, rhs)
	case KindActorType, KindInstrumentType, KindActivityType, KindJurisdiction:
		return fmt.Sprintf("%s eq %s", TypedCheckField(e.Kind), formatValue(e.Value))
	case KindAllOf, KindAnyOf, KindNoneOf:
		parts := make([]string, len(e.Exprs))
		for i := range e.Exprs {
			parts[i] = e.Exprs[i].String()
		}
		return string(e.Kind) + "(" + strings.Join(parts, ", ") + ")"
	case KindNot:
		if e.Expr == nil {
			return "not(?)"
		}
		return "not(" + e.Expr.String() + ")"
	case KindAlwaysTrue:
		return "true"
	case KindAlwaysFalse:
		return "false"
	case KindCEL:
		return "cel(" + e.Expression + ")"
	}
	return "unknown(" + string(e.Kind) + ")"
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", t)
	case []any:
		parts := make([]string, len(t))
		for i, elem := range t {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(t[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", t)
	}
}
