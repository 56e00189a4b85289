package types

import "time"

// CategoryScore is the persisted maturity value for one category. Scores are
// derived entirely from the current active specification set; the table is a
// cache, never a source of truth.
type CategoryScore struct {
	ProjectID   string    `json:"project_id"`
	Category    Category  `json:"category"`
	Score       float64   `json:"score"` // in [0,100]
	LastUpdated time.Time `json:"last_updated"`
}

// MaturityReport is the full per-project maturity picture returned from a
// recompute: one score per category plus the weighted overall mean.
type MaturityReport struct {
	ProjectID  string               `json:"project_id"`
	Categories map[Category]float64 `json:"categories"`
	Overall    float64              `json:"overall"`
	ComputedAt time.Time            `json:"computed_at"`
}

// Score returns the score for a category, zero if absent.
func (r *MaturityReport) Score(c Category) float64 {
	if r == nil || r.Categories == nil {
		return 0
	}
	return r.Categories[c]
}
