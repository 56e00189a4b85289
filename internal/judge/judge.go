// Package judge provides the advisory semantic enrichment of rule-detected
// conflicts. A judge never originates a conflict: the deterministic rule
// engine decides existence, the judge only improves explanation and option
// ranking. Every judge failure degrades to the rule's static template.
package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tenet-io/tenet/internal/rules"
	"github.com/tenet-io/tenet/internal/types"
)

// Enrichment is the judge's opinion on one conflict candidate. Options
// carry prose and ranking only; structured effects always come from the
// rule template (the judge is not trusted to mutate the store).
type Enrichment struct {
	Description string                 `json:"description"`
	Impact      []string               `json:"impact"`
	Options     []types.SolutionOption `json:"solution_options"`
}

// Judge enriches a rule-detected conflict candidate
type Judge interface {
	// Enrich returns an improved description, impact list, and ranked
	// options for the candidate. The specs slice holds the referenced
	// specifications for context. Errors are recoverable: callers fall
	// back to the candidate's own template.
	Enrich(ctx context.Context, cand rules.Candidate, specs []*types.Specification) (*Enrichment, error)
}

// ErrMalformedResponse indicates the judge returned something outside the
// required response schema.
var ErrMalformedResponse = errors.New("judge response does not match required schema")

// Validate rejects enrichments outside the strict response schema
func (e *Enrichment) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: empty description", ErrMalformedResponse)
	}
	if len(e.Options) == 0 {
		return fmt.Errorf("%w: no solution options", ErrMalformedResponse)
	}
	for i, opt := range e.Options {
		if strings.TrimSpace(opt.Label) == "" {
			return fmt.Errorf("%w: option %d has no label", ErrMalformedResponse, i)
		}
		if opt.Score < 0 || opt.Score > 1 {
			return fmt.Errorf("%w: option %q score %g outside [0,1]", ErrMalformedResponse, opt.Label, opt.Score)
		}
	}
	return nil
}

// MergeOptions reconciles judge-proposed options with the rule template.
// Enriched options keep their prose and ranking but inherit the template's
// structured effects when labels match (case-insensitive); options the
// judge invented become annotate-only. Template options the judge dropped
// are appended so no deterministic resolution path ever disappears.
func MergeOptions(template, enriched []types.SolutionOption) []types.SolutionOption {
	covered := make(map[string]bool, len(enriched))
	out := make([]types.SolutionOption, 0, len(enriched)+len(template))

	for _, opt := range enriched {
		merged := opt
		merged.Effects = nil
		for _, tmpl := range template {
			if strings.EqualFold(strings.TrimSpace(tmpl.Label), strings.TrimSpace(opt.Label)) {
				merged.Effects = tmpl.Effects
				covered[strings.ToLower(strings.TrimSpace(tmpl.Label))] = true
				break
			}
		}
		if merged.Effects == nil {
			merged.Effects = []types.Effect{{Kind: types.EffectAnnotate, Note: "judge-proposed option, no store change"}}
		}
		out = append(out, merged)
	}

	for _, tmpl := range template {
		if !covered[strings.ToLower(strings.TrimSpace(tmpl.Label))] {
			out = append(out, tmpl)
		}
	}
	return out
}
