package compiler

import "github.com/clauselab/regula/pkg/rulemodel"

// NormalizeAppliesIf folds a rule's applies_if list into a single
// normalized conjunction. An empty list is always-true: the rule applies
// unconditionally.
func NormalizeAppliesIf(appliesIf []rulemodel.ConditionExpr) rulemodel.ConditionExpr {
	if len(appliesIf) == 0 {
		return rulemodel.ConditionExpr{Kind: rulemodel.KindAlwaysTrue}
	}
	return Normalize(rulemodel.ConditionExpr{
		Kind:  rulemodel.KindAllOf,
		Exprs: appliesIf,
	})
}

// Normalize rewrites a condition expression into an equivalent, flatter
// form: same-kind all_of/any_of nesting is flattened, constants are
// propagated out of conjunctions and disjunctions, degenerate single-child
// groups collapse, and double negation cancels. The rewrite preserves
// evaluation semantics exactly, including the vacuous-truth convention for
// empty groups.
func Normalize(expr rulemodel.ConditionExpr) rulemodel.ConditionExpr {
	switch expr.Kind {
	case rulemodel.KindAllOf:
		return normalizeAllOf(expr)
	case rulemodel.KindAnyOf:
		return normalizeAnyOf(expr)
	case rulemodel.KindNoneOf:
		return normalizeNoneOf(expr)
	case rulemodel.KindNot:
		return normalizeNot(expr)
	}
	return expr
}

func alwaysTrue() rulemodel.ConditionExpr {
	return rulemodel.ConditionExpr{Kind: rulemodel.KindAlwaysTrue}
}

func alwaysFalse() rulemodel.ConditionExpr {
	return rulemodel.ConditionExpr{Kind: rulemodel.KindAlwaysFalse}
}

func normalizeAllOf(expr rulemodel.ConditionExpr) rulemodel.ConditionExpr {
	var kept []rulemodel.ConditionExpr
	for i := range expr.Exprs {
		sub := Normalize(expr.Exprs[i])
		switch sub.Kind {
		case rulemodel.KindAlwaysTrue:
			// Neutral element of conjunction.
		case rulemodel.KindAlwaysFalse:
			return alwaysFalse()
		case rulemodel.KindAllOf:
			kept = append(kept, sub.Exprs...)
		default:
			kept = append(kept, sub)
		}
	}
	switch len(kept) {
	case 0:
		return alwaysTrue()
	case 1:
		return kept[0]
	}
	return rulemodel.ConditionExpr{Kind: rulemodel.KindAllOf, Exprs: kept}
}

func normalizeAnyOf(expr rulemodel.ConditionExpr) rulemodel.ConditionExpr {
	// Empty any_of is vacuously true by convention; only a non-empty list
	// whose members all collapsed to false is false.
	if len(expr.Exprs) == 0 {
		return alwaysTrue()
	}
	var kept []rulemodel.ConditionExpr
	for i := range expr.Exprs {
		sub := Normalize(expr.Exprs[i])
		switch sub.Kind {
		case rulemodel.KindAlwaysFalse:
			// Neutral element of disjunction.
		case rulemodel.KindAlwaysTrue:
			return alwaysTrue()
		case rulemodel.KindAnyOf:
			kept = append(kept, sub.Exprs...)
		default:
			kept = append(kept, sub)
		}
	}
	switch len(kept) {
	case 0:
		return alwaysFalse()
	case 1:
		return kept[0]
	}
	return rulemodel.ConditionExpr{Kind: rulemodel.KindAnyOf, Exprs: kept}
}

func normalizeNoneOf(expr rulemodel.ConditionExpr) rulemodel.ConditionExpr {
	var kept []rulemodel.ConditionExpr
	for i := range expr.Exprs {
		sub := Normalize(expr.Exprs[i])
		switch sub.Kind {
		case rulemodel.KindAlwaysFalse:
			// A member that can never hold never violates none_of.
		case rulemodel.KindAlwaysTrue:
			return alwaysFalse()
		default:
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		return alwaysTrue()
	}
	return rulemodel.ConditionExpr{Kind: rulemodel.KindNoneOf, Exprs: kept}
}

func normalizeNot(expr rulemodel.ConditionExpr) rulemodel.ConditionExpr {
	if expr.Expr == nil {
		return expr
	}
	sub := Normalize(*expr.Expr)
	switch sub.Kind {
	case rulemodel.KindAlwaysTrue:
		return alwaysFalse()
	case rulemodel.KindAlwaysFalse:
		return alwaysTrue()
	case rulemodel.KindNot:
		if sub.Expr != nil {
			return *sub.Expr
		}
	}
	return rulemodel.ConditionExpr{Kind: rulemodel.KindNot, Expr: &sub}
}
