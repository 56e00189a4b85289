package maturity

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenet-io/tenet/internal/types"
)

func spec(id string, cat types.Category, confidence float64, at time.Time) *types.Specification {
	return &types.Specification{
		ID:         id,
		ProjectID:  "p1",
		Category:   cat,
		Key:        "k-" + id,
		Value:      "v",
		Confidence: confidence,
		Status:     types.SpecActive,
		CreatedAt:  at,
	}
}

func TestEmptyProjectScoresZero(t *testing.T) {
	calc := NewCalculator(nil)
	report := calc.Recompute("p1", nil)

	require.Len(t, report.Categories, len(types.AllCategories))
	for cat, score := range report.Categories {
		assert.Zerof(t, score, "category %s", cat)
	}
	assert.Zero(t, report.Overall)
}

func TestDiminishingReturns(t *testing.T) {
	calc := NewCalculator(nil)
	base := time.Now().UTC()

	one := calc.Recompute("p1", []*types.Specification{
		spec("a", types.CategoryGoals, 1.0, base),
	})
	two := calc.Recompute("p1", []*types.Specification{
		spec("a", types.CategoryGoals, 1.0, base),
		spec("b", types.CategoryGoals, 1.0, base.Add(time.Second)),
	})

	assert.Equal(t, 25.0, one.Score(types.CategoryGoals))
	// second full-confidence spec contributes 25 * (1 - 0.25) = 18.75
	assert.Equal(t, 43.75, two.Score(types.CategoryGoals))

	first := one.Score(types.CategoryGoals)
	second := two.Score(types.CategoryGoals) - first
	assert.Less(t, second, first, "later specs must contribute less")
}

func TestScoreNeverExceedsHundred(t *testing.T) {
	calc := NewCalculator(nil)
	base := time.Now().UTC()

	var specs []*types.Specification
	for i := 0; i < 200; i++ {
		specs = append(specs, spec(fmt.Sprintf("s%03d", i), types.CategoryRequirements, 1.0, base.Add(time.Duration(i)*time.Second)))
	}
	report := calc.Recompute("p1", specs)
	score := report.Score(types.CategoryRequirements)
	assert.LessOrEqual(t, score, 100.0)
	assert.Greater(t, score, 99.0, "200 specs should saturate the category")
}

func TestMonotonicUnderGrowth(t *testing.T) {
	calc := NewCalculator(nil)
	base := time.Now().UTC()

	var specs []*types.Specification
	prev := 0.0
	for i := 0; i < 20; i++ {
		specs = append(specs, spec(fmt.Sprintf("s%02d", i), types.CategoryData, 0.7, base.Add(time.Duration(i)*time.Second)))
		score := calc.Recompute("p1", specs).Score(types.CategoryData)
		if score < prev {
			t.Fatalf("score dropped from %g to %g at spec %d", prev, score, i)
		}
		prev = score
	}
}

func TestOrderInsensitive(t *testing.T) {
	calc := NewCalculator(nil)
	base := time.Now().UTC()

	specs := []*types.Specification{
		spec("a", types.CategoryGoals, 0.9, base),
		spec("b", types.CategoryGoals, 0.4, base.Add(time.Second)),
		spec("c", types.CategoryGoals, 0.7, base.Add(2*time.Second)),
		spec("d", types.CategoryTechStack, 0.8, base),
	}
	want := calc.Recompute("p1", specs)

	shuffled := make([]*types.Specification, len(specs))
	copy(shuffled, specs)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := calc.Recompute("p1", shuffled)
		assert.Equal(t, want.Categories, got.Categories)
		assert.Equal(t, want.Overall, got.Overall)
	}
}

func TestNonActiveSpecsIgnored(t *testing.T) {
	calc := NewCalculator(nil)
	base := time.Now().UTC()

	superseded := spec("old", types.CategoryGoals, 1.0, base)
	superseded.Status = types.SpecSuperseded
	archived := spec("gone", types.CategoryGoals, 1.0, base)
	archived.Status = types.SpecArchived

	report := calc.Recompute("p1", []*types.Specification{
		superseded, archived,
		spec("live", types.CategoryGoals, 1.0, base.Add(time.Second)),
	})
	assert.Equal(t, 25.0, report.Score(types.CategoryGoals), "only the active spec should count")
}

func TestWeightedOverall(t *testing.T) {
	calc := NewCalculator(&Config{
		CategoryWeights: map[types.Category]float64{
			types.CategoryGoals: 2,
			// zero weight removes a category from the mean entirely
			types.CategoryTimeline: 0,
		},
	})
	base := time.Now().UTC()
	report := calc.Recompute("p1", []*types.Specification{
		spec("a", types.CategoryGoals, 1.0, base),
	})

	// goals = 25 at weight 2, nine remaining categories at weight 1 score 0
	want := 25.0 * 2 / (2 + 9)
	assert.InDelta(t, want, report.Overall, 0.01)
}

func TestCustomBaseWeight(t *testing.T) {
	calc := NewCalculator(&Config{BaseWeight: 50})
	report := calc.Recompute("p1", []*types.Specification{
		spec("a", types.CategorySecurity, 1.0, time.Now().UTC()),
	})
	assert.Equal(t, 50.0, report.Score(types.CategorySecurity))
}

func TestRecomputeIsPure(t *testing.T) {
	calc := NewCalculator(nil)
	base := time.Now().UTC()
	specs := []*types.Specification{
		spec("a", types.CategoryGoals, 0.9, base),
		spec("b", types.CategoryBusiness, 0.6, base),
	}
	first := calc.Recompute("p1", specs)
	second := calc.Recompute("p1", specs)
	assert.Equal(t, first.Categories, second.Categories)
	assert.Equal(t, first.Overall, second.Overall)
}
