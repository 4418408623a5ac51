package rulemodel

import (
	"errors"
	"fmt"
)

// ErrMalformedTree marks structural defects in a rule's decision tree.
var ErrMalformedTree = errors.New("rulemodel: malformed decision tree")

// Validate checks the rule's structural invariants: identifiers present,
// every condition expression well formed for its kind, and the decision
// tree a proper binary tree whose every node is a complete branch or a
// complete leaf.
func (r *Rule) Validate() error {
	if r.RuleID == "" {
		return errors.New("rulemodel: rule_id is required")
	}
	for i := range r.AppliesIf {
		if err := r.AppliesIf[i].Validate(); err != nil {
			return fmt.Errorf("rulemodel: rule %s: applies_if[%d]: %w", r.RuleID, i, err)
		}
	}
	if r.DecisionTree == nil {
		return fmt.Errorf("%w: rule %s has no decision_tree", ErrMalformedTree, r.RuleID)
	}
	if err := validateNode(r.DecisionTree, "root"); err != nil {
		return fmt.Errorf("rule %s: %w", r.RuleID, err)
	}
	if _, _, err := r.EffectiveWindow(); err != nil {
		return err
	}
	return nil
}

func validateNode(n *DecisionNode, path string) error {
	if n == nil {
		return fmt.Errorf("%w: nil node at %s", ErrMalformedTree, path)
	}
	if n.IsLeaf() {
		if n.Outcome == "" {
			return fmt.Errorf("%w: leaf at %s has no outcome", ErrMalformedTree, path)
		}
		if n.IfTrue != nil || n.IfFalse != nil {
			return fmt.Errorf("%w: leaf at %s has children", ErrMalformedTree, path)
		}
		return nil
	}
	if err := n.Condition.Validate(); err != nil {
		return fmt.Errorf("%w: branch at %s: %v", ErrMalformedTree, path, err)
	}
	if n.IfTrue == nil || n.IfFalse == nil {
		return fmt.Errorf("%w: branch at %s missing a child", ErrMalformedTree, path)
	}
	if err := validateNode(n.IfTrue, path+".t"); err != nil {
		return err
	}
	return validateNode(n.IfFalse, path+".f")
}

// Validate checks that the expression is well formed for its kind.
func (e *ConditionExpr) Validate() error {
	switch e.Kind {
	case KindFieldCheck:
		if e.Field == "" {
			return errors.New("field_check requires field")
		}
		if !ValidOperator(e.Op) {
			return fmt.Errorf("field_check has unknown op %q", e.Op)
		}
		if e.Value == nil && e.ValueFrom == "" {
			return errors.New("field_check requires value or value_from")
		}
		if e.Value != nil && e.ValueFrom != "" {
			return errors.New("field_check has both value and value_from")
		}
	case KindActorType, KindInstrumentType, KindActivityType, KindJurisdiction:
		if _, ok := e.Value.(string); !ok {
			return fmt.Errorf("%s requires a string value", e.Kind)
		}
	case KindAllOf, KindAnyOf, KindNoneOf:
		for i := range e.Exprs {
			if err := e.Exprs[i].Validate(); err != nil {
				return fmt.Errorf("%s[%d]: %w", e.Kind, i, err)
			}
		}
	case KindNot:
		if e.Expr == nil {
			return errors.New("not requires expr")
		}
		return e.Expr.Validate()
	case KindAlwaysTrue, KindAlwaysFalse:
		// No payload.
	case KindCEL:
		if e.Expression == "" {
			return errors.New("cel requires expression")
		}
	default:
		return fmt.Errorf("unknown condition kind %q", e.Kind)
	}
	return nil
}
