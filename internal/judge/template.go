package judge

import (
	"context"

	"github.com/tenet-io/tenet/internal/rules"
	"github.com/tenet-io/tenet/internal/types"
)

// TemplateJudge returns the rule's own static description, impact, and
// options unchanged. It is the degraded path when the semantic judge fails,
// and the only path when no API key is configured. It never errors.
type TemplateJudge struct{}

// NewTemplateJudge creates the static fallback judge
func NewTemplateJudge() *TemplateJudge {
	return &TemplateJudge{}
}

// Enrich implements Judge using the candidate's template verbatim
func (j *TemplateJudge) Enrich(_ context.Context, cand rules.Candidate, _ []*types.Specification) (*Enrichment, error) {
	return &Enrichment{
		Description: cand.Description,
		Impact:      cand.Impact,
		Options:     cand.Options,
	}, nil
}

var _ Judge = (*TemplateJudge)(nil)
