// Package maturity derives completeness scores from the active
// specification set. Scores carry no independent state: recomputing from
// scratch always reproduces the persisted values, which is what makes the
// repair path trustworthy.
package maturity

import (
	"math"
	"sort"
	"time"

	"github.com/tenet-io/tenet/internal/types"
)

// DefaultBaseWeight is the score contribution of one full-confidence
// specification into an empty category.
const DefaultBaseWeight = 25.0

// Config holds calculator tuning
type Config struct {
	// BaseWeight is the per-spec contribution before damping.
	// Default: DefaultBaseWeight.
	BaseWeight float64
	// CategoryWeights weight the overall mean. Missing categories get
	// weight 1 (default uniform).
	CategoryWeights map[types.Category]float64
}

// Calculator computes per-category and overall maturity
type Calculator struct {
	baseWeight float64
	weights    map[types.Category]float64
}

// NewCalculator creates a calculator. A nil config uses defaults.
func NewCalculator(cfg *Config) *Calculator {
	c := &Calculator{baseWeight: DefaultBaseWeight}
	if cfg != nil {
		if cfg.BaseWeight > 0 {
			c.baseWeight = cfg.BaseWeight
		}
		c.weights = cfg.CategoryWeights
	}
	return c
}

// Recompute derives the full maturity report from the active set alone.
// Contributions are applied in insertion order with diminishing returns:
// each spec adds baseWeight * confidence * (1 - current/100), so a sparse
// category cannot be pushed to 100 by one confident fact.
func (c *Calculator) Recompute(projectID string, active []*types.Specification) *types.MaturityReport {
	byCategory := make(map[types.Category][]*types.Specification)
	for _, s := range active {
		if s.Status != types.SpecActive {
			continue
		}
		byCategory[s.Category] = append(byCategory[s.Category], s)
	}

	report := &types.MaturityReport{
		ProjectID:  projectID,
		Categories: make(map[types.Category]float64, len(types.AllCategories)),
		ComputedAt: time.Now().UTC(),
	}

	for _, cat := range types.AllCategories {
		specs := byCategory[cat]
		// Insertion order; CreatedAt ties broken by ID so the result does
		// not depend on how the caller happened to order the slice.
		sort.SliceStable(specs, func(i, j int) bool {
			if !specs[i].CreatedAt.Equal(specs[j].CreatedAt) {
				return specs[i].CreatedAt.Before(specs[j].CreatedAt)
			}
			return specs[i].ID < specs[j].ID
		})

		score := 0.0
		for _, s := range specs {
			score += c.baseWeight * s.Confidence * (1 - score/100)
		}
		report.Categories[cat] = math.Min(100, round2(score))
	}

	report.Overall = round2(c.overall(report.Categories))
	return report
}

// overall is the weighted mean over all known categories
func (c *Calculator) overall(scores map[types.Category]float64) float64 {
	var sum, weightSum float64
	for _, cat := range types.AllCategories {
		w := 1.0
		if c.weights != nil {
			if cw, ok := c.weights[cat]; ok {
				w = cw
			}
		}
		if w <= 0 {
			continue
		}
		sum += scores[cat] * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// round2 keeps scores stable across float accumulation order differences
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
