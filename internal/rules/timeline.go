package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tenet-io/tenet/internal/types"
)

// deadlineKeys name timeline specs that carry a delivery horizon
var deadlineKeys = []string{"deadline", "mvp_deadline", "launch_date", "timeframe"}

// durationRegex extracts "<number> <unit>" phrases like "2 weeks" or "1 month"
var durationRegex = regexp.MustCompile(`(?i)(\d+)\s*(day|week|month)s?`)

// scopeThreshold is the number of active requirement and goal specs above
// which a short deadline is considered overcommitted.
const scopeThreshold = 8

// shortDeadlineDays is the horizon, in days, below which breadth of scope
// starts to matter.
const shortDeadlineDays = 45

// DeadlineScopeRule flags a short declared deadline against a broad set of
// accumulated requirements and goals. Purely arithmetic: a duration phrase
// parsed from the deadline value versus a count of active specs.
type DeadlineScopeRule struct{}

func (r *DeadlineScopeRule) ID() string { return "deadline-scope" }

func (r *DeadlineScopeRule) Evaluate(idx *Index) []Candidate {
	deadline := idx.LookupAny(types.CategoryTimeline, deadlineKeys...)
	if deadline == nil {
		return nil
	}
	days, ok := parseDurationDays(deadline.Value)
	if !ok || days > shortDeadlineDays {
		return nil
	}

	scope := append([]*types.Specification{},
		idx.Category(types.CategoryRequirements)...)
	scope = append(scope, idx.Category(types.CategoryGoals)...)
	if len(scope) <= scopeThreshold {
		return nil
	}

	refs := []string{deadline.ID}
	for _, s := range scope {
		refs = append(refs, s.ID)
	}

	return []Candidate{{
		RuleID:   r.ID(),
		Type:     types.ConflictTimeline,
		Severity: types.SeverityMedium,
		SpecRefs: refs,
		Description: fmt.Sprintf("Deadline %s=%q (~%d days) against %d accumulated requirements and goals.",
			deadline.Key, deadline.Value, days, len(scope)),
		Impact: []string{
			"Either the date or the scope will slip",
			"Quality is the usual casualty when neither is adjusted",
		},
		Options: []types.SolutionOption{
			{
				Label: "Extend the deadline",
				Pros:  []string{"Scope stays intact"},
				Cons:  []string{"The date presumably had a reason"},
				Score: 0.6,
				Effects: []types.Effect{
					{Kind: types.EffectSupersede, SpecRef: deadline.ID, NewValue: "3 months"},
				},
			},
			{
				Label: "Cut scope to fit the date",
				Pros:  []string{"Keeps the launch date credible"},
				Cons:  []string{"Requires triaging requirements one by one"},
				Score: 0.5,
				Effects: []types.Effect{
					{Kind: types.EffectAnnotate, Note: "scope triage required: mark requirements to defer"},
				},
			},
			{
				Label: "Proceed as planned",
				Pros:  []string{"No decisions needed today"},
				Cons:  []string{"The mismatch compounds weekly"},
				Score: 0.1,
				Effects: []types.Effect{
					{Kind: types.EffectAnnotate, Note: "timeline risk accepted"},
				},
			},
		},
	}}
}

// parseDurationDays converts a duration phrase to approximate days.
// Returns false when no duration phrase is present.
func parseDurationDays(value string) (int, bool) {
	m := durationRegex.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "week":
		return n * 7, true
	case "month":
		return n * 30, true
	default:
		return n, true
	}
}
