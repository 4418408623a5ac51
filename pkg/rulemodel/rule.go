package rulemodel

import (
	"fmt"
	"time"
)

// dateLayout is the calendar-date form accepted for effective windows.
const dateLayout = "2006-01-02"

// Source identifies the legal provenance of a rule. Descriptive only; no
// uniqueness constraint.
type Source struct {
	DocumentID string `json:"document_id" yaml:"document_id"`
	Article    string `json:"article,omitempty" yaml:"article,omitempty"`
	Paragraphs []int  `json:"paragraphs,omitempty" yaml:"paragraphs,omitempty"`
	Pages      []int  `json:"pages,omitempty" yaml:"pages,omitempty"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Rule is a single declarative regulatory rule. Rules are immutable after
// load: updates replace the Rule, so any derived compiled form or cache
// entry is invalidated by content-hash comparison alone.
type Rule struct {
	RuleID      string `json:"rule_id" yaml:"rule_id"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// AppliesIf elements are implicitly conjoined: the rule applies iff
	// every element evaluates true against the scenario.
	AppliesIf []ConditionExpr `json:"applies_if,omitempty" yaml:"applies_if,omitempty"`

	DecisionTree *DecisionNode `json:"decision_tree" yaml:"decision_tree"`
	Source       Source        `json:"source" yaml:"source"`

	// Effective window, calendar dates ("2006-01-02") or RFC 3339. Either
	// bound may be empty (unbounded).
	EffectiveFrom string `json:"effective_from,omitempty" yaml:"effective_from,omitempty"`
	EffectiveTo   string `json:"effective_to,omitempty" yaml:"effective_to,omitempty"`

	// Metadata is opaque pass-through (e.g. the verification subsystem's
	// consistency block). Never consulted for evaluation decisions.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// EffectiveWindow parses the rule's effective bounds. Zero times mean
// unbounded on that side.
func (r *Rule) EffectiveWindow() (from, to time.Time, err error) {
	if r.EffectiveFrom != "" {
		from, err = parseDate(r.EffectiveFrom)
		if err != nil {
			return from, to, fmt.Errorf("rulemodel: rule %s: effective_from: %w", r.RuleID, err)
		}
	}
	if r.EffectiveTo != "" {
		to, err = parseDate(r.EffectiveTo)
		if err != nil {
			return from, to, fmt.Errorf("rulemodel: rule %s: effective_to: %w", r.RuleID, err)
		}
	}
	return from, to, nil
}

// InEffect reports whether at lies inside the rule's effective window.
// Unparseable bounds fail closed.
func (r *Rule) InEffect(at time.Time) bool {
	from, to, err := r.EffectiveWindow()
	if err != nil {
		return false
	}
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && at.After(to) {
		return false
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// RulePack is a named, versioned collection of rules loaded as a unit. A
// pack owns its rules; no rule belongs to more than one loaded pack.
type RulePack struct {
	PackID      string `json:"pack_id" yaml:"pack_id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version" yaml:"version"`
	Rules       []Rule `json:"rules" yaml:"rules"`
}

// RuleByID returns the pack's rule with the given id, if present.
func (p *RulePack) RuleByID(id string) (*Rule, bool) {
	for i := range p.Rules {
		if p.Rules[i].RuleID == id {
			return &p.Rules[i], true
		}
	}
	return nil, false
}
