package rules

import (
	"fmt"
	"strings"

	"github.com/tenet-io/tenet/internal/types"
)

// databaseKeys are the tech_stack keys under which a database choice is
// recorded, in lookup priority order.
var databaseKeys = []string{"database", "db", "datastore"}

// embeddedDatabases are single-writer, file-backed stores that cannot serve
// a multi-writer or horizontally scaled deployment.
var embeddedDatabases = []string{"sqlite", "access", "localstorage", "flat file", "json file", "csv"}

// scaleSignalValues read as an ambition the embedded stores cannot meet
var scaleSignalValues = []string{
	"national", "global", "international", "worldwide",
	"multi-tenant", "multi tenant", "enterprise", "high availability",
	"millions", "concurrent",
}

// scaleSignalKeys name goals that imply scale regardless of the exact value
var scaleSignalKeys = []string{"market_scope_expansion", "scale", "concurrent_users", "expected_load"}

// EmbeddedDatabaseScaleRule flags an embedded single-writer database paired
// with a declared scale or multi-tenancy goal. Severity is fixed at high:
// the combination is a rework trap, not a style concern.
type EmbeddedDatabaseScaleRule struct{}

func (r *EmbeddedDatabaseScaleRule) ID() string { return "embedded-db-scale" }

func (r *EmbeddedDatabaseScaleRule) Evaluate(idx *Index) []Candidate {
	db := idx.LookupAny(types.CategoryTechStack, databaseKeys...)
	if db == nil || !containsAny(db.Value, embeddedDatabases) {
		return nil
	}

	var out []Candidate
	for _, cat := range []types.Category{types.CategoryGoals, types.CategoryBusiness} {
		for _, goal := range idx.Category(cat) {
			keyHit := containsAny(goal.Key, scaleSignalKeys)
			valueHit := containsAny(goal.Value, scaleSignalValues)
			if !keyHit && !valueHit {
				continue
			}
			out = append(out, Candidate{
				RuleID:   r.ID(),
				Type:     types.ConflictTechnology,
				Severity: types.SeverityHigh,
				SpecRefs: []string{db.ID, goal.ID},
				Description: fmt.Sprintf("The %s database cannot support the declared goal %s=%q: it is a single-writer embedded store.",
					db.Value, goal.Key, goal.Value),
				Impact: []string{
					"Write contention under concurrent load",
					"No horizontal scaling or replication path",
					"Migration cost grows with every table added",
				},
				Options: []types.SolutionOption{
					{
						Label: "Switch to PostgreSQL",
						Pros:  []string{"Multi-writer, battle-tested at national scale", "Straightforward migration while the schema is young"},
						Cons:  []string{"Requires a managed server or hosted instance"},
						Score: 0.9,
						Effects: []types.Effect{
							{Kind: types.EffectSupersede, SpecRef: db.ID, NewValue: "PostgreSQL"},
						},
					},
					{
						Label: fmt.Sprintf("Drop the %s goal", goal.Key),
						Pros:  []string{"Keeps the current stack unchanged"},
						Cons:  []string{"Abandons a stated business objective"},
						Score: 0.3,
						Effects: []types.Effect{
							{Kind: types.EffectArchive, SpecRef: goal.ID},
						},
					},
					{
						Label: "Accept the risk for now",
						Pros:  []string{"No immediate work"},
						Cons:  []string{"The contradiction resurfaces at launch, when it is most expensive"},
						Score: 0.1,
						Effects: []types.Effect{
							{Kind: types.EffectAnnotate, Note: "risk accepted: embedded database retained despite scale goal"},
						},
					},
				},
			})
		}
	}
	return out
}

// frameworkLanguages maps backend frameworks to the language they imply
var frameworkLanguages = map[string]string{
	"django":  "python",
	"flask":   "python",
	"fastapi": "python",
	"rails":   "ruby",
	"spring":  "java",
	"laravel": "php",
	"express": "javascript",
	"gin":     "go",
	"phoenix": "elixir",
}

// StackMismatchRule flags a declared backend framework whose implementation
// language contradicts the declared primary language.
type StackMismatchRule struct{}

func (r *StackMismatchRule) ID() string { return "stack-mismatch" }

func (r *StackMismatchRule) Evaluate(idx *Index) []Candidate {
	backend := idx.LookupAny(types.CategoryTechStack, "backend", "backend_framework", "framework")
	language := idx.LookupAny(types.CategoryTechStack, "language", "primary_language")
	if backend == nil || language == nil {
		return nil
	}

	implied := ""
	for fw, lang := range frameworkLanguages {
		if strings.Contains(strings.ToLower(backend.Value), fw) {
			implied = lang
			break
		}
	}
	if implied == "" {
		return nil
	}

	declared := strings.ToLower(language.Value)
	if strings.Contains(declared, implied) {
		return nil
	}
	// JavaScript and TypeScript are interchangeable for this check
	if implied == "javascript" && strings.Contains(declared, "typescript") {
		return nil
	}

	return []Candidate{{
		RuleID:   r.ID(),
		Type:     types.ConflictTechnology,
		Severity: types.SeverityMedium,
		SpecRefs: []string{backend.ID, language.ID},
		Description: fmt.Sprintf("Backend %s=%q is a %s framework, but the declared language is %q.",
			backend.Key, backend.Value, implied, language.Value),
		Impact: []string{
			"Two runtimes and toolchains to maintain",
			"Team expertise split across ecosystems",
		},
		Options: []types.SolutionOption{
			{
				Label: fmt.Sprintf("Align language to %s", implied),
				Pros:  []string{"One ecosystem end to end"},
				Cons:  []string{"May not match existing team skills"},
				Score: 0.7,
				Effects: []types.Effect{
					{Kind: types.EffectSupersede, SpecRef: language.ID, NewValue: implied},
				},
			},
			{
				Label: fmt.Sprintf("Replace %s with a %s-native framework", backend.Value, language.Value),
				Pros:  []string{"Keeps the team's primary language"},
				Cons:  []string{"Framework choice must be revisited"},
				Score: 0.6,
				Effects: []types.Effect{
					{Kind: types.EffectArchive, SpecRef: backend.ID},
				},
			},
			{
				Label: "Keep both deliberately",
				Pros:  []string{"Sometimes a polyglot split is intentional"},
				Cons:  []string{"Carries the maintenance cost forever"},
				Score: 0.2,
				Effects: []types.Effect{
					{Kind: types.EffectAnnotate, Note: "polyglot backend accepted"},
				},
			},
		},
	}}
}
