package rules

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenet-io/tenet/internal/types"
)

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func activeSpec(id string, cat types.Category, key, value string) *types.Specification {
	testClock = testClock.Add(time.Second)
	return &types.Specification{
		ID:         id,
		ProjectID:  "p1",
		Category:   cat,
		Key:        key,
		Value:      value,
		Confidence: 0.9,
		Status:     types.SpecActive,
		CreatedAt:  testClock,
	}
}

func TestEmbeddedDatabaseAgainstScaleGoal(t *testing.T) {
	active := []*types.Specification{
		activeSpec("db", types.CategoryTechStack, "database", "SQLite"),
		activeSpec("goal", types.CategoryGoals, "market_scope_expansion", "national"),
	}

	candidates := NewEngine().Evaluate(active)
	require.Len(t, candidates, 1, "expected exactly one conflict")

	c := candidates[0]
	assert.Equal(t, "embedded-db-scale", c.RuleID)
	assert.Equal(t, types.ConflictTechnology, c.Type)
	assert.Equal(t, types.SeverityHigh, c.Severity)
	assert.ElementsMatch(t, []string{"db", "goal"}, c.SpecRefs)
	require.NotEmpty(t, c.Options)

	// the recommended option must supersede the database spec
	best := c.Options[0]
	assert.Equal(t, "Switch to PostgreSQL", best.Label)
	require.Len(t, best.Effects, 1)
	assert.Equal(t, types.EffectSupersede, best.Effects[0].Kind)
	assert.Equal(t, "db", best.Effects[0].SpecRef)
	assert.Equal(t, "PostgreSQL", best.Effects[0].NewValue)
}

func TestScaleSignalByValueAlone(t *testing.T) {
	// key carries no signal, the value does
	active := []*types.Specification{
		activeSpec("db", types.CategoryTechStack, "datastore", "sqlite3"),
		activeSpec("goal", types.CategoryBusiness, "ambition", "global rollout"),
	}
	candidates := NewEngine().Evaluate(active)
	require.Len(t, candidates, 1)
	assert.Equal(t, "embedded-db-scale", candidates[0].RuleID)
}

func TestConsistentSpecSetYieldsNoConflicts(t *testing.T) {
	active := []*types.Specification{
		activeSpec("fe", types.CategoryTechStack, "frontend", "React"),
		activeSpec("be", types.CategoryTechStack, "backend", "Django"),
		activeSpec("lang", types.CategoryTechStack, "language", "Python"),
		activeSpec("db", types.CategoryTechStack, "database", "PostgreSQL"),
		activeSpec("goal", types.CategoryGoals, "market_scope_expansion", "national"),
	}
	candidates := NewEngine().Evaluate(active)
	assert.Empty(t, candidates)
}

func TestEvaluationOrderInsensitive(t *testing.T) {
	active := []*types.Specification{
		activeSpec("db", types.CategoryTechStack, "database", "SQLite"),
		activeSpec("goal", types.CategoryGoals, "scale", "millions of users"),
		activeSpec("be", types.CategoryTechStack, "backend", "Django"),
		activeSpec("lang", types.CategoryTechStack, "language", "Go"),
		activeSpec("off", types.CategoryRequirements, "offline_mode", "required"),
		activeSpec("rt", types.CategoryRequirements, "realtime_collaboration", "yes"),
	}

	engine := NewEngine()
	want := engine.Evaluate(active)
	require.Len(t, want, 3, "db/scale, stack mismatch, and requirement contradiction")

	shuffled := make([]*types.Specification, len(active))
	copy(shuffled, active)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := engine.Evaluate(shuffled)
		require.Len(t, got, len(want))
		for j := range want {
			assert.Equal(t, want[j].Fingerprint(), got[j].Fingerprint())
			assert.Equal(t, want[j].Description, got[j].Description)
		}
	}
}

func TestStackMismatch(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		language string
		fires    bool
	}{
		{"django with go", "Django", "Go", true},
		{"django with python", "Django", "Python 3.12", false},
		{"rails with ruby", "Rails 7", "Ruby", false},
		{"express with typescript", "Express", "TypeScript", false},
		{"unknown framework", "CustomServer", "Go", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active := []*types.Specification{
				activeSpec("be", types.CategoryTechStack, "backend", tt.backend),
				activeSpec("lang", types.CategoryTechStack, "language", tt.language),
			}
			candidates := (&StackMismatchRule{}).Evaluate(NewIndex(active))
			if tt.fires {
				require.Len(t, candidates, 1)
				assert.Equal(t, types.SeverityMedium, candidates[0].Severity)
			} else {
				assert.Empty(t, candidates)
			}
		})
	}
}

func TestRequirementContradiction(t *testing.T) {
	active := []*types.Specification{
		activeSpec("anon", types.CategoryRequirements, "anonymous_usage", "yes"),
		activeSpec("acct", types.CategoryRequirements, "user_accounts", "required"),
	}
	candidates := (&RequirementContradictionRule{}).Evaluate(NewIndex(active))
	require.Len(t, candidates, 1)
	assert.Equal(t, types.ConflictRequirement, candidates[0].Type)

	// a negated value must not fire
	active[0].Value = "no"
	assert.Empty(t, (&RequirementContradictionRule{}).Evaluate(NewIndex(active)))
}

func TestAccountsWithoutAuthentication(t *testing.T) {
	active := []*types.Specification{
		activeSpec("acct", types.CategoryRequirements, "user_accounts", "yes"),
		activeSpec("auth", types.CategorySecurity, "authentication", "none"),
	}
	candidates := (&RequirementContradictionRule{}).Evaluate(NewIndex(active))
	require.Len(t, candidates, 1)

	active[1].Value = "OAuth2"
	assert.Empty(t, (&RequirementContradictionRule{}).Evaluate(NewIndex(active)))
}

func TestComplianceStorage(t *testing.T) {
	active := []*types.Specification{
		activeSpec("comp", types.CategorySecurity, "compliance", "HIPAA"),
		activeSpec("db", types.CategoryTechStack, "database", "SQLite"),
	}
	candidates := (&ComplianceStorageRule{}).Evaluate(NewIndex(active))
	require.Len(t, candidates, 1)
	assert.Equal(t, types.SeverityHigh, candidates[0].Severity)

	active[1].Value = "PostgreSQL"
	assert.Empty(t, (&ComplianceStorageRule{}).Evaluate(NewIndex(active)))
}

func TestDeadlineScope(t *testing.T) {
	specs := []*types.Specification{
		activeSpec("dl", types.CategoryTimeline, "deadline", "2 weeks"),
	}
	for i := 0; i < 9; i++ {
		specs = append(specs, activeSpec(
			string(rune('a'+i)), types.CategoryRequirements, "feature_"+string(rune('a'+i)), "yes"))
	}

	candidates := (&DeadlineScopeRule{}).Evaluate(NewIndex(specs))
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, types.ConflictTimeline, c.Type)
	assert.Len(t, c.SpecRefs, 10, "deadline plus all nine scope specs")

	// a generous deadline defuses the same scope
	specs[0].Value = "6 months"
	assert.Empty(t, (&DeadlineScopeRule{}).Evaluate(NewIndex(specs)))
}

func TestParseDurationDays(t *testing.T) {
	tests := []struct {
		value string
		days  int
		ok    bool
	}{
		{"2 weeks", 14, true},
		{"1 month", 30, true},
		{"45 days", 45, true},
		{"3months", 90, true},
		{"by Q3", 0, false},
		{"ASAP", 0, false},
	}
	for _, tt := range tests {
		days, ok := parseDurationDays(tt.value)
		if ok != tt.ok || days != tt.days {
			t.Errorf("parseDurationDays(%q) = (%d, %v), want (%d, %v)", tt.value, days, ok, tt.days, tt.ok)
		}
	}
}

func TestTeamCapacity(t *testing.T) {
	active := []*types.Specification{
		activeSpec("team", types.CategoryResources, "team_size", "solo"),
		activeSpec("arch", types.CategoryArchitecture, "style", "microservices on Kubernetes"),
	}
	candidates := (&TeamCapacityRule{}).Evaluate(NewIndex(active))
	require.Len(t, candidates, 1)
	assert.Equal(t, types.ConflictResource, candidates[0].Type)
	assert.Equal(t, "Start with a modular monolith", candidates[0].Options[0].Label)

	active[0].Value = "8 engineers"
	assert.Empty(t, (&TeamCapacityRule{}).Evaluate(NewIndex(active)))
}

func TestFingerprintIgnoresRefOrder(t *testing.T) {
	a := Candidate{RuleID: "r", SpecRefs: []string{"x", "y"}}
	b := Candidate{RuleID: "r", SpecRefs: []string{"y", "x"}}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := Candidate{RuleID: "other", SpecRefs: []string{"x", "y"}}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestIndexSkipsInactive(t *testing.T) {
	gone := activeSpec("gone", types.CategoryTechStack, "database", "SQLite")
	gone.Status = types.SpecSuperseded
	idx := NewIndex([]*types.Specification{gone})
	assert.Nil(t, idx.Lookup(types.CategoryTechStack, "database"))
}
