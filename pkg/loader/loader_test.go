package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const goodPack = `
pack_id: mica-core
name: MiCA core rules
version: 1.2.0
rules:
  - rule_id: mica_art36_authorization
    title: ART authorization
    applies_if:
      - kind: field_check
        field: instrument_type
        op: in
        value: [art, stablecoin]
    decision_tree:
      condition:
        kind: field_check
        field: authorized
        op: eq
        value: true
      if_true:
        outcome: authorized
      if_false:
        outcome: not_authorized
        obligations:
          - description: apply for authorization
            deadline: 60 days
    source:
      document_id: mica
      article: Art. 36
    effective_from: "2024-06-30"
  - rule_id: mica_art48_emt_offer
    applies_if:
      - kind: instrument_type_check
        value: emt
    decision_tree:
      outcome: requires_notification
    source:
      document_id: mica
      article: Art. 48
`

func TestLoader_Load(t *testing.T) {
	pack, loadErrs, err := New(nil).Load(strings.NewReader(goodPack))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loadErrs) != 0 {
		t.Fatalf("unexpected load errors: %v", loadErrs)
	}
	if pack.PackID != "mica-core" || pack.Version != "1.2.0" {
		t.Errorf("pack envelope = %q %q", pack.PackID, pack.Version)
	}
	if len(pack.Rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(pack.Rules))
	}

	rule := pack.Rules[0]
	if rule.RuleID != "mica_art36_authorization" {
		t.Errorf("rule_id = %q", rule.RuleID)
	}
	if len(rule.AppliesIf) != 1 {
		t.Fatalf("applies_if = %d", len(rule.AppliesIf))
	}
	if rule.DecisionTree.IsLeaf() {
		t.Error("decision tree should be a branch")
	}
	if got := rule.DecisionTree.IfFalse.Obligations[0].Deadline; got != "60 days" {
		t.Errorf("deadline = %q", got)
	}
	if rule.EffectiveFrom != "2024-06-30" {
		t.Errorf("effective_from = %q", rule.EffectiveFrom)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mica.yaml")
	if err := os.WriteFile(path, []byte(goodPack), 0600); err != nil {
		t.Fatal(err)
	}

	pack, loadErrs, err := New(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(loadErrs) != 0 || len(pack.Rules) != 2 {
		t.Fatalf("rules = %d, errors = %v", len(pack.Rules), loadErrs)
	}
}

func TestLoader_PerRuleFailuresDoNotAbortPack(t *testing.T) {
	input := `
pack_id: mixed
version: 0.1.0
rules:
  - rule_id: ok_rule
    decision_tree:
      outcome: permitted
    source:
      document_id: doc
  - rule_id: missing_source
    decision_tree:
      outcome: permitted
  - rule_id: ok_rule
    decision_tree:
      outcome: exempt
    source:
      document_id: doc
  - rule_id: half_branch
    decision_tree:
      condition:
        kind: always_true
      if_true:
        outcome: permitted
    source:
      document_id: doc
`
	pack, loadErrs, err := New(nil).Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pack.Rules) != 1 || pack.Rules[0].RuleID != "ok_rule" {
		t.Fatalf("surviving rules = %+v", pack.Rules)
	}
	if len(loadErrs) != 3 {
		t.Fatalf("load errors = %d (%v), want 3", len(loadErrs), loadErrs)
	}

	kinds := map[ErrorKind]int{}
	for _, le := range loadErrs {
		kinds[le.Kind]++
		if le.Error() == "" {
			t.Error("load error renders empty")
		}
	}
	if kinds[ErrSchema] != 2 {
		t.Errorf("schema errors = %d, want 2 (missing source, half branch)", kinds[ErrSchema])
	}
	if kinds[ErrDuplicateRuleID] != 1 {
		t.Errorf("duplicate errors = %d, want 1", kinds[ErrDuplicateRuleID])
	}
}

func TestLoader_MalformedTree(t *testing.T) {
	// Both pass the structural schema (a leaf with children is still an
	// object, a nested empty leaf satisfies the node shape) but fail
	// deep validation at different depths of the tree.
	cases := []struct {
		name  string
		input string
	}{
		{"leaf with children", `
pack_id: trees
version: 0.1.0
rules:
  - rule_id: bad_tree
    decision_tree:
      outcome: permitted
      if_true:
        outcome: exempt
      if_false:
        outcome: prohibited
    source:
      document_id: doc
`},
		{"nested leaf without outcome", `
pack_id: trees
version: 0.1.0
rules:
  - rule_id: bad_tree
    decision_tree:
      condition:
        kind: always_true
      if_true:
        outcome: permitted
        if_true:
          outcome: exempt
        if_false:
          outcome: prohibited
      if_false:
        outcome: prohibited
    source:
      document_id: doc
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pack, loadErrs, err := New(nil).Load(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(pack.Rules) != 0 {
				t.Fatalf("rules = %d, want 0", len(pack.Rules))
			}
			if len(loadErrs) != 1 || loadErrs[0].Kind != ErrMalformedTree {
				t.Fatalf("load errors = %v, want one malformed_tree", loadErrs)
			}
			if loadErrs[0].RuleID != "bad_tree" {
				t.Errorf("rule_id = %q", loadErrs[0].RuleID)
			}
		})
	}
}

func TestLoader_PackLevelFailures(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"not yaml", "{ pack_id: "},
		{"missing pack_id", "version: 1.0.0\nrules: []"},
		{"missing version", "pack_id: p\nrules: []"},
		{"bad semver", "pack_id: p\nversion: not-a-version\nrules: []"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := New(nil).Load(strings.NewReader(tc.input)); err == nil {
				t.Fatal("expected pack-level error")
			}
		})
	}
}

func TestLoader_UnknownConditionKind(t *testing.T) {
	input := `
pack_id: kinds
version: 0.1.0
rules:
  - rule_id: bad_kind
    applies_if:
      - kind: regex_match
        field: name
    decision_tree:
      outcome: permitted
    source:
      document_id: doc
`
	pack, loadErrs, err := New(nil).Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pack.Rules) != 0 || len(loadErrs) != 1 || loadErrs[0].Kind != ErrSchema {
		t.Fatalf("rules = %d, errors = %v", len(pack.Rules), loadErrs)
	}
}
