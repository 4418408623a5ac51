package rulemodel

// DecisionOutcome is the decision attached to a leaf. The listed constants
// form the closed set; any other non-empty string is a custom outcome.
type DecisionOutcome string

const (
	OutcomeAuthorized           DecisionOutcome = "authorized"
	OutcomeNotAuthorized        DecisionOutcome = "not_authorized"
	OutcomeExempt               DecisionOutcome = "exempt"
	OutcomeRequiresReview       DecisionOutcome = "requires_review"
	OutcomeRequiresNotification DecisionOutcome = "requires_notification"
	OutcomeProhibited           DecisionOutcome = "prohibited"
	OutcomePermitted            DecisionOutcome = "permitted"
)

// Known reports whether the outcome belongs to the closed set, as opposed
// to a caller-defined custom outcome.
func (o DecisionOutcome) Known() bool {
	switch o {
	case OutcomeAuthorized, OutcomeNotAuthorized, OutcomeExempt,
		OutcomeRequiresReview, OutcomeRequiresNotification,
		OutcomeProhibited, OutcomePermitted:
		return true
	}
	return false
}

// Obligation is a duty attached to a decision leaf. The engine carries it
// through to results unevaluated.
type Obligation struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Description string `json:"description" yaml:"description"`
	Deadline    string `json:"deadline,omitempty" yaml:"deadline,omitempty"`
}

// DecisionNode is one node of a rule's binary decision tree. A node is
// either a branch (Condition, IfTrue, IfFalse all set) or a leaf (Outcome
// set). Exactly one root-to-leaf path is traversed per evaluation.
type DecisionNode struct {
	NodeID string `json:"node_id,omitempty" yaml:"node_id,omitempty"`

	// Branch fields.
	Condition *ConditionExpr `json:"condition,omitempty" yaml:"condition,omitempty"`
	IfTrue    *DecisionNode  `json:"if_true,omitempty" yaml:"if_true,omitempty"`
	IfFalse   *DecisionNode  `json:"if_false,omitempty" yaml:"if_false,omitempty"`

	// Leaf fields.
	Outcome     DecisionOutcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Explanation string          `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Obligations []Obligation    `json:"obligations,omitempty" yaml:"obligations,omitempty"`
	References  []Source        `json:"references,omitempty" yaml:"references,omitempty"`
}

// IsLeaf reports whether the node carries a decision rather than a branch.
func (n *DecisionNode) IsLeaf() bool { return n.Condition == nil }
