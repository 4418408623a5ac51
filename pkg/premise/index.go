// Package premise implements the inverted premise index: (field, value)
// pair to the set of rule ids whose extracted premises include that pair,
// plus an always-candidate bucket for unindexable rules.
//
// An Index is immutable after Build. Consistency with the current compiled
// rule set is maintained by building a fresh Index and swapping it in
// atomically (see pkg/runtime), never by in-place edits.
package premise

import (
	"sort"

	"github.com/clauselab/regula/pkg/compiler"
	"github.com/clauselab/regula/pkg/rulemodel"
)

// Index maps premise keys to candidate rule ids.
type Index struct {
	byKey  map[string][]string
	always []string
	rules  int
}

// Build constructs an index over the given compiled rules. Every premise
// of an indexable rule contributes an entry; unindexable rules land in the
// always-candidate bucket.
func Build(rules []*compiler.CompiledRule) *Index {
	ix := &Index{byKey: make(map[string][]string), rules: len(rules)}
	for _, cr := range rules {
		if cr.Unindexable {
			ix.always = append(ix.always, cr.RuleID)
			continue
		}
		for _, p := range cr.Premises {
			key, ok := p.Key()
			if !ok {
				continue
			}
			ix.byKey[key] = append(ix.byKey[key], cr.RuleID)
		}
	}
	sort.Strings(ix.always)
	for key := range ix.byKey {
		ids := ix.byKey[key]
		sort.Strings(ids)
		ix.byKey[key] = dedupSorted(ids)
	}
	return ix
}

// Candidates returns the union of rule ids matched by any (field, value)
// pair present in the scenario, plus the always-candidate bucket. The
// result is sorted and duplicate-free, O(k) in the number of scenario
// fields rather than O(n) in the rule set.
//
// Indexed premises are necessary conditions, so no applicable rule can be
// missing from the result; it may contain rules that turn out not to
// apply, which full evaluation then rejects.
func (ix *Index) Candidates(scenario rulemodel.Scenario) []string {
	out := make([]string, 0, len(ix.always))
	out = append(out, ix.always...)
	for field, value := range scenario {
		key, ok := compiler.PremiseKey(field, value)
		if !ok {
			continue
		}
		out = append(out, ix.byKey[key]...)
	}
	sort.Strings(out)
	return dedupSorted(out)
}

// Lookup returns the rule ids indexed under a single (field, value) pair,
// excluding the always-candidate bucket.
func (ix *Index) Lookup(field string, value any) []string {
	key, ok := compiler.PremiseKey(field, value)
	if !ok {
		return nil
	}
	ids := ix.byKey[key]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// AlwaysCandidates returns a copy of the always-candidate bucket.
func (ix *Index) AlwaysCandidates() []string {
	out := make([]string, len(ix.always))
	copy(out, ix.always)
	return out
}

// Size returns the number of rules the index was built over and the number
// of distinct premise keys.
func (ix *Index) Size() (rules, keys int) {
	return ix.rules, len(ix.byKey)
}

func dedupSorted(ids []string) []string {
	out := ids[:0]
	var prev string
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		out = append(out, id)
		prev = id
	}
	return out
}
