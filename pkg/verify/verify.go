// Package verify defines the interface to the tiered semantic-consistency
// verifier, an external collaborator. The verifier reads a rule together
// with its source text and writes a consistency block into the rule's
// metadata; the decision engine republishes that block opaquely and never
// consults it when evaluating.
package verify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clauselab/regula/pkg/rulemodel"
)

// MetadataKey is where the consistency block lives inside rule metadata.
const MetadataKey = "consistency"

// Status summarizes the verifier's judgement of a rule against its source.
type Status string

const (
	StatusVerified     Status = "verified"
	StatusNeedsReview  Status = "needs_review"
	StatusInconsistent Status = "inconsistent"
	StatusUnverified   Status = "unverified"
)

// Label grades a single evidence record.
type Label string

const (
	LabelPass    Label = "pass"
	LabelFail    Label = "fail"
	LabelWarning Label = "warning"
)

// Evidence is one record produced by a verification tier.
type Evidence struct {
	Tier        int     `json:"tier"`
	Category    string  `json:"category"`
	Label       Label   `json:"label"`
	Score       float64 `json:"score,omitempty"`
	Details     string  `json:"details,omitempty"`
	SourceSpan  string  `json:"source_span,omitempty"`
	RuleElement string  `json:"rule_element,omitempty"`
}

// Consistency is the block the verifier attaches to a rule.
type Consistency struct {
	Status     Status     `json:"status"`
	Confidence float64    `json:"confidence,omitempty"`
	VerifiedAt time.Time  `json:"verified_at"`
	VerifiedBy string     `json:"verified_by,omitempty"`
	Evidence   []Evidence `json:"evidence,omitempty"`
}

// Attach writes the consistency block into the rule's metadata, replacing
// any previous block. The rule itself is otherwise untouched; attaching
// evidence never affects evaluation semantics.
func Attach(rule *rulemodel.Rule, c Consistency) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("verify: marshal consistency: %w", err)
	}
	var block map[string]any
	if err := json.Unmarshal(data, &block); err != nil {
		return fmt.Errorf("verify: reshape consistency: %w", err)
	}
	if rule.Metadata == nil {
		rule.Metadata = make(map[string]any)
	}
	rule.Metadata[MetadataKey] = block
	return nil
}

// FromMetadata reads a rule's consistency block back out, if present.
func FromMetadata(rule *rulemodel.Rule) (*Consistency, bool, error) {
	raw, ok := rule.Metadata[MetadataKey]
	if !ok {
		return nil, false, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, true, fmt.Errorf("verify: reread consistency: %w", err)
	}
	var c Consistency
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, true, fmt.Errorf("verify: decode consistency: %w", err)
	}
	return &c, true, nil
}
