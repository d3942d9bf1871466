// Package mapping is the declarative registry from document-AI field names to schema fields.
package mapping

import (
	"strings"

	"github.com/joseph-ayodele/policy-intake/constants"
	"github.com/joseph-ayodele/policy-intake/internal/policy"
	"github.com/joseph-ayodele/policy-intake/internal/vocabulary"
)

// Rule maps a set of source names onto one schema field. Master-data targets set Category and
// are resolved through the vocabulary instead of Transform.
type Rule struct {
	SourceNames []string
	Target      policy.Field
	Transform   Transform
	Validate    func(policy.Value) bool
	Category    constants.MasterCategory
	Priority    int
}

// IsMasterRef reports whether the rule resolves against master data.
func (r Rule) IsMasterRef() bool { return r.Category != "" }

// Valid runs the rule's validator; rules without one accept any value.
func (r Rule) Valid(v policy.Value) bool {
	if r.Validate == nil {
		return true
	}
	return r.Validate(v)
}

// Table indexes rules by normalized source name. It is immutable after NewTable.
type Table struct {
	rules []Rule
	index map[string][]int
}

func NewTable(rules []Rule) *Table {
	t := &Table{rules: append([]Rule(nil), rules...), index: make(map[string][]int)}
	for i, r := range t.rules {
		seen := make(map[string]bool, len(r.SourceNames))
		for _, name := range r.SourceNames {
			k := Key(name)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			t.index[k] = append(t.index[k], i)
		}
	}
	return t
}

// Key folds a field name so numero_poliza, numeroPoliza and "Número Póliza" compare equal.
func Key(name string) string {
	return strings.ReplaceAll(vocabulary.Normalize(name), " ", "")
}

// RulesFor returns the rules matching sourceName in declaration order.
func (t *Table) RulesFor(sourceName string) []Rule {
	idx := t.index[Key(sourceName)]
	out := make([]Rule, len(idx))
	for i, j := range idx {
		out[i] = t.rules[j]
	}
	return out
}

// Rules returns every rule in declaration order.
func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Position is the declaration index of the first rule matching sourceName and target, used
// to break ties deterministically.
func (t *Table) Position(sourceName string, target policy.Field) int {
	for _, j := range t.index[Key(sourceName)] {
		if t.rules[j].Target == target {
			return j
		}
	}
	return len(t.rules)
}

// Primary returns the highest-priority rule declared for target. Manual edits use its
// transform and validator.
func (t *Table) Primary(target policy.Field) (Rule, bool) {
	best := -1
	for i, r := range t.rules {
		if r.Target != target {
			continue
		}
		if best < 0 || r.Priority > t.rules[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return Rule{}, false
	}
	return t.rules[best], true
}
