package rulemodel

import "time"

// EvaluationDateField is the reserved scenario field carrying the date a
// scenario should be evaluated at. Absent, evaluation defaults to "now".
const EvaluationDateField = "evaluation_date"

// Scenario is a flat set of facts about a case: field name to string,
// number, boolean, or list. Scenarios are partial by design; rules must
// fail closed on missing fields rather than error.
type Scenario map[string]any

// Get looks up a scenario field.
func (s Scenario) Get(field string) (any, bool) {
	v, ok := s[field]
	return v, ok
}

// EvaluationDate returns the scenario's explicit evaluation date, if one
// was supplied and parses.
func (s Scenario) EvaluationDate() (time.Time, bool) {
	raw, ok := s[EvaluationDateField]
	if !ok {
		return time.Time{}, false
	}
	str, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := parseDate(str)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TraceStep records one condition checked while walking a decision tree.
type TraceStep struct {
	Node         string `json:"node"`
	Condition    string `json:"condition"`
	Result       bool   `json:"result"`
	ValueChecked any    `json:"value_checked,omitempty"`
}

// DecisionResult is the outcome of evaluating one rule against one
// scenario. Created fresh per evaluation; never shared or mutated after
// being returned.
type DecisionResult struct {
	RuleID     string `json:"rule_id"`
	Applicable bool   `json:"applicable"`

	Decision    DecisionOutcome `json:"decision,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
	Obligations []Obligation    `json:"obligations,omitempty"`
	References  []Source        `json:"references,omitempty"`
	Trace       []TraceStep     `json:"trace,omitempty"`

	// RuleMetadata republishes the rule's opaque metadata (verification
	// consistency block included) without interpretation.
	RuleMetadata map[string]any `json:"rule_metadata,omitempty"`

	// Err is set only for programming-invariant violations during this
	// rule's evaluation; ordinary data absence never sets it.
	Err string `json:"error,omitempty"`
}
