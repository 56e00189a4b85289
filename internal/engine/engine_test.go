package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenet-io/tenet/internal/judge"
	"github.com/tenet-io/tenet/internal/resolver"
	"github.com/tenet-io/tenet/internal/rules"
	"github.com/tenet-io/tenet/internal/storage"
	"github.com/tenet-io/tenet/internal/types"
)

func newTestEngine(t *testing.T, j judge.Judge) (*Engine, storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(context.Background(), &storage.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng, err := New(&Config{Store: store, Judge: j})
	require.NoError(t, err)
	return eng, store
}

func cand(cat types.Category, key, value string) types.Candidate {
	return types.Candidate{Category: cat, Key: key, Value: value, Confidence: 0.9, Source: types.SourceDirectChat}
}

func TestAddDetectsConflictAndClosesGate(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "SQLite"),
	}, "tester")
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 1)
	assert.Empty(t, result.Conflicts)

	ok, _, err := eng.CanAdvancePhase(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok, "a lone database choice conflicts with nothing")

	result, err = eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryGoals, "market_scope_expansion", "national"),
	}, "tester")
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)

	c := result.Conflicts[0]
	assert.Equal(t, types.ConflictTechnology, c.Type)
	assert.Equal(t, types.SeverityHigh, c.Severity)
	assert.Equal(t, types.ConflictUnresolved, c.Status)
	assert.Len(t, c.SpecRefs, 2)

	ok, blocking, err := eng.CanAdvancePhase(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, blocking, 1)

	// conflict persisted, not just returned
	persisted, err := store.GetConflict(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.RuleID, persisted.RuleID)
}

func TestConsistentAdditionsKeepGateOpen(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "frontend", "React"),
		cand(types.CategoryTechStack, "backend", "Django"),
		cand(types.CategoryTechStack, "language", "Python"),
		cand(types.CategoryTechStack, "database", "PostgreSQL"),
	}, "tester")
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 4)
	assert.Empty(t, result.Conflicts)

	require.NotNil(t, result.Maturity)
	score := result.Maturity.Score(types.CategoryTechStack)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 100.0)

	ok, _, err := eng.CanAdvancePhase(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, eng.CheckAdvance(ctx, "p1"))
}

func TestInvalidCandidateRejectsWholeBatch(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "PostgreSQL"),
		{Category: "vibes", Key: "k", Value: "v", Confidence: 0.5},
	}, "tester")
	require.Error(t, err)
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)

	// nothing at all persisted, including the valid first candidate
	active, err := store.GetActive(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestConflictNotReRecorded(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "SQLite"),
		cand(types.CategoryGoals, "market_scope_expansion", "national"),
	}, "tester")
	require.NoError(t, err)

	// an unrelated addition re-evaluates the same active set
	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTesting, "strategy", "unit tests"),
	}, "tester")
	require.NoError(t, err)
	assert.Empty(t, result.Conflicts, "existing finding must not be re-recorded")

	all, err := store.ListConflicts(ctx, "p1", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResolveAppliesEffectsAndReopensGate(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "SQLite"),
		cand(types.CategoryGoals, "market_scope_expansion", "national"),
	}, "tester")
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	conflictID := result.Conflicts[0].ID

	resolution, err := eng.Resolve(ctx, conflictID, "Switch to PostgreSQL", "tester")
	require.NoError(t, err)
	assert.Equal(t, "Switch to PostgreSQL", resolution.ChosenOptionLabel)
	require.Len(t, resolution.ResultingSpecIDs, 1)

	newSpec, err := store.GetSpecification(ctx, resolution.ResultingSpecIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL", newSpec.Value)
	assert.Equal(t, types.SpecActive, newSpec.Status)

	// the old database spec is retired
	history, err := store.GetHistory(ctx, "p1", types.CategoryTechStack, "database")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, types.SpecSuperseded, history[0].Status)

	ok, _, err := eng.CanAdvancePhase(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok, "gate must reopen after resolution")
}

func TestResolveReplayIsIdempotent(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "SQLite"),
		cand(types.CategoryGoals, "market_scope_expansion", "national"),
	}, "tester")
	require.NoError(t, err)
	conflictID := result.Conflicts[0].ID

	first, err := eng.Resolve(ctx, conflictID, "Switch to PostgreSQL", "tester")
	require.NoError(t, err)

	// replay with a different label: the original decision wins, no new effects
	second, err := eng.Resolve(ctx, conflictID, "Accept the risk for now", "tester")
	require.NoError(t, err)
	assert.Equal(t, first.ChosenOptionLabel, second.ChosenOptionLabel)
	assert.Equal(t, first.ResultingSpecIDs, second.ResultingSpecIDs)

	history, err := store.GetHistory(ctx, "p1", types.CategoryTechStack, "database")
	require.NoError(t, err)
	assert.Len(t, history, 2, "replay must not supersede again")
}

func TestResolveUnknownOption(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "SQLite"),
		cand(types.CategoryGoals, "market_scope_expansion", "national"),
	}, "tester")
	require.NoError(t, err)

	_, err = eng.Resolve(ctx, result.Conflicts[0].ID, "do nothing forever", "tester")
	assert.ErrorIs(t, err, resolver.ErrUnknownOption)
}

// failingJudge always errors, exercising the degraded enrichment path
type failingJudge struct{}

func (failingJudge) Enrich(context.Context, rules.Candidate, []*types.Specification) (*judge.Enrichment, error) {
	return nil, errors.New("model unavailable")
}

func TestJudgeFailureDegradesToTemplate(t *testing.T) {
	eng, store := newTestEngine(t, failingJudge{})
	ctx := context.Background()

	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "SQLite"),
		cand(types.CategoryGoals, "market_scope_expansion", "national"),
	}, "tester")
	require.NoError(t, err, "judge failure must never fail the add")
	require.Len(t, result.Conflicts, 1)

	c := result.Conflicts[0]
	assert.NotEmpty(t, c.Description, "template enrichment must be present")
	assert.NotEmpty(t, c.Options)

	// the degradation is recorded in the audit trail
	events, err := store.GetEvents(ctx, "p1", 50)
	require.NoError(t, err)
	found := false
	for _, e := range events {
		if e.Type == types.EventEnrichmentDegraded && e.SubjectID == c.ID {
			found = true
		}
	}
	assert.True(t, found, "expected an enrichment_degraded event")
}

// rephrasingJudge returns improved prose with one matching and one invented
// option, exercising the merge path
type rephrasingJudge struct{}

func (rephrasingJudge) Enrich(_ context.Context, cand rules.Candidate, _ []*types.Specification) (*judge.Enrichment, error) {
	return &judge.Enrichment{
		Description: "enriched: " + cand.Description,
		Impact:      []string{"enriched impact"},
		Options: []types.SolutionOption{
			{Label: cand.Options[0].Label, Pros: []string{"enriched pros"}, Score: 0.97},
			{Label: "Completely new idea", Score: 0.5},
		},
	}, nil
}

func TestJudgeEnrichmentPersisted(t *testing.T) {
	eng, store := newTestEngine(t, rephrasingJudge{})
	ctx := context.Background()

	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "SQLite"),
		cand(types.CategoryGoals, "market_scope_expansion", "national"),
	}, "tester")
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)

	persisted, err := store.GetConflict(ctx, result.Conflicts[0].ID)
	require.NoError(t, err)
	assert.Contains(t, persisted.Description, "enriched:")

	// matched option kept its template effects; invented one is annotate-only
	matched := persisted.OptionByLabel("Switch to PostgreSQL")
	require.NotNil(t, matched)
	require.NotEmpty(t, matched.Effects)
	assert.Equal(t, types.EffectSupersede, matched.Effects[0].Kind)

	invented := persisted.OptionByLabel("Completely new idea")
	require.NotNil(t, invented)
	require.Len(t, invented.Effects, 1)
	assert.Equal(t, types.EffectAnnotate, invented.Effects[0].Kind)

	// enrichment never flips deterministic fields
	assert.Equal(t, types.SeverityHigh, persisted.Severity)
	assert.Equal(t, types.ConflictUnresolved, persisted.Status)
}

func TestLowSeverityDoesNotBlock(t *testing.T) {
	store, err := storage.NewStorage(context.Background(), &storage.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng, err := New(&Config{
		Store:              store,
		BlockingSeverities: []types.Severity{types.SeverityHigh},
	})
	require.NoError(t, err)
	ctx := context.Background()

	// stack mismatch is medium severity; with only high blocking it is advisory
	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "backend", "Django"),
		cand(types.CategoryTechStack, "language", "Go"),
	}, "tester")
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, types.SeverityMedium, result.Conflicts[0].Severity)

	ok, _, err := eng.CanAdvancePhase(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepairFixesDrift(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryGoals, "scope", "regional"),
	}, "tester")
	require.NoError(t, err)

	// a clean store has no drift
	drift, err := eng.Repair(ctx, "p1", "tester")
	require.NoError(t, err)
	assert.Empty(t, drift)

	// corrupt the cached score out of band
	unit, err := store.BeginUnit(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, unit.SaveMaturity(ctx, &types.MaturityReport{
		ProjectID:  "p1",
		Categories: map[types.Category]float64{types.CategoryGoals: 99},
	}))
	require.NoError(t, unit.Commit())

	drift, err = eng.Repair(ctx, "p1", "tester")
	require.NoError(t, err)
	require.Contains(t, drift, types.CategoryGoals)
	assert.Equal(t, 99.0, drift[types.CategoryGoals][0])

	scores, err := store.GetMaturity(ctx, "p1")
	require.NoError(t, err)
	for _, cs := range scores {
		if cs.Category == types.CategoryGoals {
			assert.NotEqual(t, 99.0, cs.Score, "drifted score must be repaired")
		}
	}
}

func TestMaturityDropsWhenResolutionArchives(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := eng.AddSpecifications(ctx, "p1", []types.Candidate{
		cand(types.CategoryTechStack, "database", "SQLite"),
		cand(types.CategoryGoals, "market_scope_expansion", "national"),
	}, "tester")
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	before := result.Maturity.Score(types.CategoryGoals)
	require.Greater(t, before, 0.0)

	// archiving the goal is the one legitimate way a score drops
	_, err = eng.Resolve(ctx, result.Conflicts[0].ID, "Drop the market_scope_expansion goal", "tester")
	require.NoError(t, err)

	scores, err := store.GetMaturity(ctx, "p1")
	require.NoError(t, err)
	for _, cs := range scores {
		if cs.Category == types.CategoryGoals {
			assert.Less(t, cs.Score, before)
		}
	}
}
