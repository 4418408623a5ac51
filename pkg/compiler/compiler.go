// Package compiler transforms rules into their intermediate representation:
// a normalized, short-circuit-friendly condition tree plus the extracted
// premise set used by the premise index for sub-linear candidate dispatch.
//
// Compilation is idempotent and side-effect-free; racing compilations of
// the same rule produce identical output and may be resolved
// last-writer-wins at the cache.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/clauselab/regula/pkg/canonicalize"
	"github.com/clauselab/regula/pkg/rulemodel"
)

// Premise is a (field, value) pair necessary for a rule to apply.
type Premise struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Key returns the premise's index key, or ok=false if the value is not a
// scalar the index can address.
func (p Premise) Key() (string, bool) {
	return PremiseKey(p.Field, p.Value)
}

// PremiseKey builds the canonical index key for a (field, value) pair.
// Both premise extraction and scenario-side lookup use this function, so
// the two sides cannot drift. Only scalars are addressable, and the
// numeric types accepted here must stay identical to the set the engine
// treats as comparable: a type the engine can equate but the index cannot
// address would prune applicable rules.
func PremiseKey(field string, value any) (string, bool) {
	switch t := value.(type) {
	case string:
		return field + "\x1fs:" + t, true
	case bool:
		return field + "\x1fb:" + strconv.FormatBool(t), true
	case int:
		return field + "\x1fn:" + strconv.FormatFloat(float64(t), 'g', -1, 64), true
	case int32:
		return field + "\x1fn:" + strconv.FormatFloat(float64(t), 'g', -1, 64), true
	case int64:
		return field + "\x1fn:" + strconv.FormatFloat(float64(t), 'g', -1, 64), true
	case uint64:
		return field + "\x1fn:" + strconv.FormatFloat(float64(t), 'g', -1, 64), true
	case float32:
		return field + "\x1fn:" + strconv.FormatFloat(float64(t), 'g', -1, 64), true
	case float64:
		return field + "\x1fn:" + strconv.FormatFloat(t, 'g', -1, 64), true
	}
	return "", false
}

// CompiledRule is the derived IR of a rule. Never mutated, only replaced
// when the source rule's content hash changes.
type CompiledRule struct {
	RuleID      string    `json:"rule_id"`
	ContentHash string    `json:"content_hash"`
	Premises    []Premise `json:"premises,omitempty"`

	// Condition is the normalized conjunction of the rule's applies_if
	// expressions.
	Condition    rulemodel.ConditionExpr `json:"condition"`
	DecisionTree *rulemodel.DecisionNode `json:"decision_tree"`

	// Unindexable marks rules whose applicability could not be reduced to
	// premises; they are always candidates.
	Unindexable bool `json:"unindexable,omitempty"`

	// Rule is the source rule; evaluation always runs against it, through
	// the same tree-walking logic as the interpretive engine.
	Rule rulemodel.Rule `json:"rule"`
}

// Compile builds the IR for a rule. A rule that cannot be reduced to
// extractable premises is marked unindexable rather than failing, to
// preserve availability.
func Compile(rule *rulemodel.Rule) (*CompiledRule, error) {
	hash, err := canonicalize.CanonicalHash(rule)
	if err != nil {
		return nil, fmt.Errorf("compiler: rule %s: content hash: %w", rule.RuleID, err)
	}

	condition := NormalizeAppliesIf(rule.AppliesIf)
	premises := extractPremises(condition)

	return &CompiledRule{
		RuleID:       rule.RuleID,
		ContentHash:  hash,
		Premises:     premises,
		Condition:    condition,
		DecisionTree: rule.DecisionTree,
		Unindexable:  len(premises) == 0,
		Rule:         *rule,
	}, nil
}

// extractPremises collects provably necessary (field, value) equalities
// from the top-level conjuncts of a normalized condition. Extraction must
// never be too strong: anything not a plain scalar equality or typed
// ontology check contributes nothing. A superset premise set only weakens
// pruning; an overreaching one would skip applicable rules.
func extractPremises(condition rulemodel.ConditionExpr) []Premise {
	conjuncts := []rulemodel.ConditionExpr{condition}
	if condition.Kind == rulemodel.KindAllOf {
		conjuncts = condition.Exprs
	}

	var premises []Premise
	seen := make(map[string]bool)
	for i := range conjuncts {
		c := &conjuncts[i]
		var field string
		switch {
		case c.Kind == rulemodel.KindFieldCheck &&
			c.Op == rulemodel.OpEq && c.ValueFrom == "":
			field = c.Field
		case rulemodel.TypedCheckField(c.Kind) != "":
			field = rulemodel.TypedCheckField(c.Kind)
		default:
			continue
		}

		key, scalar := PremiseKey(field, c.Value)
		if !scalar || seen[key] {
			continue
		}
		seen[key] = true
		premises = append(premises, Premise{Field: field, Value: c.Value})
	}
	return premises
}
