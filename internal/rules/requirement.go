package rules

import (
	"fmt"

	"github.com/tenet-io/tenet/internal/types"
)

// contradictionPair names two specification slots that cannot both hold
// affirmative values at once. The catalog is fixed; extending it is how new
// requirement checks are added.
type contradictionPair struct {
	aCategory types.Category
	aKey      string
	bCategory types.Category
	bKey      string
	reason    string
}

var contradictionCatalog = []contradictionPair{
	{
		aCategory: types.CategoryRequirements, aKey: "offline_mode",
		bCategory: types.CategoryRequirements, bKey: "realtime_collaboration",
		reason: "real-time collaboration requires connectivity that offline-first explicitly gives up",
	},
	{
		aCategory: types.CategoryRequirements, aKey: "anonymous_usage",
		bCategory: types.CategoryRequirements, bKey: "user_accounts",
		reason: "anonymous usage and mandatory user accounts exclude each other",
	},
	{
		aCategory: types.CategoryRequirements, aKey: "user_accounts",
		bCategory: types.CategorySecurity, bKey: "authentication",
		reason: "user accounts need an authentication mechanism",
	},
}

// RequirementContradictionRule flags pairs of affirmative requirements that
// cannot be satisfied together. The third catalog entry is special-cased:
// it fires when accounts are required but authentication is declared "none".
type RequirementContradictionRule struct{}

func (r *RequirementContradictionRule) ID() string { return "requirement-contradiction" }

func (r *RequirementContradictionRule) Evaluate(idx *Index) []Candidate {
	var out []Candidate
	for _, pair := range contradictionCatalog {
		a := idx.Lookup(pair.aCategory, pair.aKey)
		b := idx.Lookup(pair.bCategory, pair.bKey)
		if a == nil || b == nil {
			continue
		}

		fires := false
		if pair.bKey == "authentication" {
			fires = truthy(a.Value) && containsAny(b.Value, []string{"none", "disabled", "no auth"})
		} else {
			fires = truthy(a.Value) && truthy(b.Value)
		}
		if !fires {
			continue
		}

		out = append(out, Candidate{
			RuleID:   r.ID(),
			Type:     types.ConflictRequirement,
			Severity: types.SeverityMedium,
			SpecRefs: []string{a.ID, b.ID},
			Description: fmt.Sprintf("%s=%q and %s=%q cannot both hold: %s.",
				a.Key, a.Value, b.Key, b.Value, pair.reason),
			Impact: []string{
				"One of the two requirements will silently lose during implementation",
				"Estimates based on the combined feature set are unreliable",
			},
			Options: []types.SolutionOption{
				{
					Label: fmt.Sprintf("Drop %s", a.Key),
					Pros:  []string{fmt.Sprintf("Keeps %s intact", b.Key)},
					Cons:  []string{fmt.Sprintf("%s was presumably wanted", a.Key)},
					Score: 0.5,
					Effects: []types.Effect{
						{Kind: types.EffectArchive, SpecRef: a.ID},
					},
				},
				{
					Label: fmt.Sprintf("Drop %s", b.Key),
					Pros:  []string{fmt.Sprintf("Keeps %s intact", a.Key)},
					Cons:  []string{fmt.Sprintf("%s was presumably wanted", b.Key)},
					Score: 0.5,
					Effects: []types.Effect{
						{Kind: types.EffectArchive, SpecRef: b.ID},
					},
				},
				{
					Label: "Keep both and decide later",
					Pros:  []string{"Defers the product decision"},
					Cons:  []string{"The contradiction blocks phase advancement until settled"},
					Score: 0.1,
					Effects: []types.Effect{
						{Kind: types.EffectAnnotate, Note: "contradiction acknowledged, decision deferred"},
					},
				},
			},
		})
	}
	return out
}

// complianceRegimes are regulatory signals that demand encrypted, access-
// controlled storage.
var complianceRegimes = []string{"hipaa", "pci", "gdpr", "soc 2", "soc2", "ferpa"}

// ComplianceStorageRule flags a declared compliance regime paired with an
// embedded plain-file store that offers neither encryption at rest nor
// access control. Severity is high for the same reason as the scale rule.
type ComplianceStorageRule struct{}

func (r *ComplianceStorageRule) ID() string { return "compliance-storage" }

func (r *ComplianceStorageRule) Evaluate(idx *Index) []Candidate {
	compliance := idx.LookupAny(types.CategorySecurity, "compliance", "regulatory", "certification")
	if compliance == nil || !containsAny(compliance.Value, complianceRegimes) {
		return nil
	}
	db := idx.LookupAny(types.CategoryTechStack, databaseKeys...)
	if db == nil || !containsAny(db.Value, embeddedDatabases) {
		return nil
	}

	return []Candidate{{
		RuleID:   r.ID(),
		Type:     types.ConflictRequirement,
		Severity: types.SeverityHigh,
		SpecRefs: []string{compliance.ID, db.ID},
		Description: fmt.Sprintf("Compliance regime %q requires encrypted, access-controlled storage; %s=%q provides neither.",
			compliance.Value, db.Key, db.Value),
		Impact: []string{
			"Audit failure risk",
			"Data-at-rest encryption must be bolted on externally",
		},
		Options: []types.SolutionOption{
			{
				Label: "Switch to PostgreSQL with encryption at rest",
				Pros:  []string{"Meets common audit baselines out of the box"},
				Cons:  []string{"Operational overhead of a managed database"},
				Score: 0.9,
				Effects: []types.Effect{
					{Kind: types.EffectSupersede, SpecRef: db.ID, NewValue: "PostgreSQL (encrypted at rest)"},
				},
			},
			{
				Label: "Scope compliance out of the MVP",
				Pros:  []string{"Unblocks early development"},
				Cons:  []string{"Compliance retrofits are notoriously expensive"},
				Score: 0.3,
				Effects: []types.Effect{
					{Kind: types.EffectArchive, SpecRef: compliance.ID},
				},
			},
		},
	}}
}
