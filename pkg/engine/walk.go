package engine

import (
	"fmt"

	"github.com/clauselab/regula/pkg/rulemodel"
)

// walk traverses the decision tree from the root, appending one TraceStep
// per branch and filling the result from the leaf it terminates at. Errors
// are programming-invariant violations only (the loader rejects malformed
// trees, but rules can reach the engine without passing through it).
func (e *Engine) walk(node *rulemodel.DecisionNode, scenario rulemodel.Scenario, res *rulemodel.DecisionResult) error {
	return e.walkNode(node, "root", scenario, res)
}

func (e *Engine) walkNode(node *rulemodel.DecisionNode, path string, scenario rulemodel.Scenario, res *rulemodel.DecisionResult) error {
	if node == nil {
		return fmt.Errorf("engine: nil decision node at %s", path)
	}
	if node.IsLeaf() {
		if node.Outcome == "" {
			return fmt.Errorf("engine: leaf at %s has no outcome", path)
		}
		res.Decision = node.Outcome
		res.Explanation = node.Explanation
		res.Obligations = node.Obligations
		res.References = node.References
		return nil
	}

	if node.IfTrue == nil || node.IfFalse == nil {
		return fmt.Errorf("engine: branch at %s missing a child", path)
	}

	ok, err := e.evalExpr(node.Condition, scenario)
	if err != nil {
		return err
	}

	step := rulemodel.TraceStep{
		Node:      nodeLabel(node, path),
		Condition: node.Condition.String(),
		Result:    ok,
	}
	if node.Condition.Kind == rulemodel.KindFieldCheck {
		_, step.ValueChecked = e.evalFieldCheck(node.Condition, scenario)
	} else if f := rulemodel.TypedCheckField(node.Condition.Kind); f != "" {
		step.ValueChecked, _ = scenario.Get(f)
	}
	res.Trace = append(res.Trace, step)

	if ok {
		return e.walkNode(node.IfTrue, path+".t", scenario, res)
	}
	return e.walkNode(node.IfFalse, path+".f", scenario, res)
}

func nodeLabel(node *rulemodel.DecisionNode, path string) string {
	if node.NodeID != "" {
		return node.NodeID
	}
	return path
}
