package engine

import (
	"fmt"
	"reflect"

	"github.com/clauselab/regula/pkg/rulemodel"
)

// evalExpr evaluates a condition expression against a scenario. Missing
// fields and type mismatches fail closed to false; errors are reserved for
// programming invariants (unknown kinds, nil sub-expressions). Composite
// kinds short-circuit left to right, which is observably equivalent to full
// evaluation because expressions are side-effect-free.
func (e *Engine) evalExpr(expr *rulemodel.ConditionExpr, scenario rulemodel.Scenario) (bool, error) {
	switch expr.Kind {
	case rulemodel.KindAlwaysTrue:
		return true, nil
	case rulemodel.KindAlwaysFalse:
		return false, nil

	case rulemodel.KindFieldCheck:
		ok, _ := e.evalFieldCheck(expr, scenario)
		return ok, nil

	case rulemodel.KindActorType, rulemodel.KindInstrumentType,
		rulemodel.KindActivityType, rulemodel.KindJurisdiction:
		field := rulemodel.TypedCheckField(expr.Kind)
		actual, present := scenario.Get(field)
		if !present {
			return false, nil
		}
		match, comparable := equalValues(actual, expr.Value)
		return comparable && match, nil

	case rulemodel.KindAllOf:
		for i := range expr.Exprs {
			ok, err := e.evalExpr(&expr.Exprs[i], scenario)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case rulemodel.KindAnyOf:
		// Empty any_of is vacuously true, matching all_of.
		if len(expr.Exprs) == 0 {
			return true, nil
		}
		for i := range expr.Exprs {
			ok, err := e.evalExpr(&expr.Exprs[i], scenario)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case rulemodel.KindNoneOf:
		for i := range expr.Exprs {
			ok, err := e.evalExpr(&expr.Exprs[i], scenario)
			if err != nil {
				return false, err
			}
			if ok {
				return false, nil
			}
		}
		return true, nil

	case rulemodel.KindNot:
		if expr.Expr == nil {
			return false, fmt.Errorf("engine: not expression has nil operand")
		}
		ok, err := e.evalExpr(expr.Expr, scenario)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case rulemodel.KindCEL:
		return e.cel.eval(expr.Expression, scenario, e.logger), nil
	}
	return false, fmt.Errorf("engine: unknown condition kind %q", expr.Kind)
}

// evalFieldCheck returns the check result and the scenario value that was
// inspected (for trace recording).
func (e *Engine) evalFieldCheck(expr *rulemodel.ConditionExpr, scenario rulemodel.Scenario) (bool, any) {
	actual, present := scenario.Get(expr.Field)
	if !present {
		return false, nil
	}

	expected := expr.Value
	if expr.ValueFrom != "" {
		ref, refPresent := scenario.Get(expr.ValueFrom)
		if !refPresent {
			return false, actual
		}
		expected = ref
	}

	switch expr.Op {
	case rulemodel.OpEq:
		match, comparable := equalValues(actual, expected)
		return comparable && match, actual
	case rulemodel.OpNe:
		match, comparable := equalValues(actual, expected)
		return comparable && !match, actual
	case rulemodel.OpLt, rulemodel.OpLe, rulemodel.OpGt, rulemodel.OpGe:
		cmp, comparable := orderValues(actual, expected)
		if !comparable {
			return false, actual
		}
		switch expr.Op {
		case rulemodel.OpLt:
			return cmp < 0, actual
		case rulemodel.OpLe:
			return cmp <= 0, actual
		case rulemodel.OpGt:
			return cmp > 0, actual
		default:
			return cmp >= 0, actual
		}
	case rulemodel.OpIn:
		return member(actual, expected), actual
	case rulemodel.OpNotIn:
		list, ok := asList(expected)
		if !ok {
			return false, actual
		}
		for i := range list {
			if match, comparable := equalValues(actual, list[i]); comparable && match {
				return false, actual
			}
		}
		return true, actual
	}
	return false, actual
}

func member(v, listVal any) bool {
	list, ok := asList(listVal)
	if !ok {
		return false
	}
	for i := range list {
		if match, comparable := equalValues(v, list[i]); comparable && match {
			return true
		}
	}
	return false
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// equalValues compares two scenario/literal values. The second return
// reports whether the types were even comparable: Eq on incomparable types
// is false, and so is Ne, keeping evaluation total and fail-closed.
func equalValues(a, b any) (match, comparable bool) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return false, false
		}
		return af == bf, true
	}
	switch at := a.(type) {
	case string:
		bt, ok := b.(string)
		return at == bt && ok, ok
	case bool:
		bt, ok := b.(bool)
		return at == bt && ok, ok
	case []any, []string:
		al, _ := asList(a)
		bl, ok := asList(b)
		if !ok {
			return false, false
		}
		return reflect.DeepEqual(normalizeList(al), normalizeList(bl)), true
	case nil:
		return b == nil, b == nil
	}
	return false, false
}

// orderValues returns -1/0/1 for ordered types (numbers, strings).
func orderValues(a, b any) (cmp int, comparable bool) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case as < bs:
		return -1, true
	case as > bs:
		return 1, true
	}
	return 0, true
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func normalizeList(list []any) []any {
	out := make([]any, len(list))
	for i, v := range list {
		if f, ok := asFloat(v); ok {
			out[i] = f
		} else {
			out[i] = v
		}
	}
	return out
}
