// Package rules implements the deterministic conflict detection engine.
// Evaluation is a pure function of the active specification set: no I/O,
// no randomness, and the emitted candidate set does not depend on the
// order specifications are passed in.
package rules

import (
	"sort"
	"strings"

	"github.com/tenet-io/tenet/internal/types"
)

// Candidate is a conflict detected by a rule, before it is persisted or
// enriched. Spec refs are ordered; the options carry structured effects
// bound to concrete specification IDs, so they double as the degraded
// enrichment template when the semantic judge is unavailable.
type Candidate struct {
	RuleID      string
	Type        types.ConflictType
	Severity    types.Severity
	SpecRefs    []string
	Description string
	Impact      []string
	Options     []types.SolutionOption
}

// Fingerprint identifies a candidate by rule and referenced specs. The
// coordinator uses it to avoid recording the same finding twice across
// successive evaluations of a growing store.
func (c *Candidate) Fingerprint() string {
	refs := make([]string, len(c.SpecRefs))
	copy(refs, c.SpecRefs)
	sort.Strings(refs)
	return c.RuleID + "|" + strings.Join(refs, "|")
}

// Rule is one independent, pure conflict predicate. Rules inspect the
// indexed active set and may emit zero or more candidates. Severity and
// type are fixed per rule, never inferred.
type Rule interface {
	ID() string
	Evaluate(specs *Index) []Candidate
}

// Engine evaluates an ordered list of rules against an active set
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with the default built-in rule set
func NewEngine() *Engine {
	return &Engine{rules: []Rule{
		&EmbeddedDatabaseScaleRule{},
		&StackMismatchRule{},
		&RequirementContradictionRule{},
		&ComplianceStorageRule{},
		&DeadlineScopeRule{},
		&TeamCapacityRule{},
	}}
}

// NewEngineWithRules creates an engine with an explicit rule list
func NewEngineWithRules(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Evaluate runs every rule against the full active set and returns all
// candidates in rule order. Overlapping findings from different rules are
// kept distinct; deduplication is the coordinator's concern.
func (e *Engine) Evaluate(active []*types.Specification) []Candidate {
	idx := NewIndex(active)
	var out []Candidate
	for _, rule := range e.rules {
		out = append(out, rule.Evaluate(idx)...)
	}
	return out
}

// Index holds the active set grouped by category, with specs in a stable
// order (creation time, then ID) so rule output is order-insensitive.
type Index struct {
	byCategory map[types.Category][]*types.Specification
}

// NewIndex builds an index over the active set
func NewIndex(specs []*types.Specification) *Index {
	idx := &Index{byCategory: make(map[types.Category][]*types.Specification)}
	for _, s := range specs {
		if s.Status != types.SpecActive {
			continue
		}
		idx.byCategory[s.Category] = append(idx.byCategory[s.Category], s)
	}
	for _, group := range idx.byCategory {
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
	}
	return idx
}

// Category returns the active specs in one category, stable order
func (idx *Index) Category(c types.Category) []*types.Specification {
	return idx.byCategory[c]
}

// Lookup returns the active spec for (category, key), or nil
func (idx *Index) Lookup(c types.Category, key string) *types.Specification {
	for _, s := range idx.byCategory[c] {
		if s.Key == key {
			return s
		}
	}
	return nil
}

// LookupAny returns the first active spec matching any of the given keys
// within a category, or nil.
func (idx *Index) LookupAny(c types.Category, keys ...string) *types.Specification {
	for _, key := range keys {
		if s := idx.Lookup(c, key); s != nil {
			return s
		}
	}
	return nil
}

// containsAny reports whether the lowercased value contains any needle
func containsAny(value string, needles []string) bool {
	v := strings.ToLower(value)
	for _, n := range needles {
		if strings.Contains(v, n) {
			return true
		}
	}
	return false
}

// truthy reports whether a value reads as an affirmative
func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "required", "enabled", "1":
		return true
	}
	return false
}
