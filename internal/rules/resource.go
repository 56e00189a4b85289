package rules

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/tenet-io/tenet/internal/types"
)

// ambitiousArchitectures need more hands than a one- or two-person team
var ambitiousArchitectures = []string{"microservice", "event-driven", "event sourcing", "service mesh", "kubernetes"}

var intRegex = regexp.MustCompile(`\d+`)

// smallTeamMax is the team size at or below which ambitious architectures
// are flagged.
const smallTeamMax = 2

// TeamCapacityRule flags an architecture whose operational surface exceeds
// what the declared team size can carry.
type TeamCapacityRule struct{}

func (r *TeamCapacityRule) ID() string { return "team-capacity" }

func (r *TeamCapacityRule) Evaluate(idx *Index) []Candidate {
	team := idx.LookupAny(types.CategoryResources, "team_size", "headcount", "developers")
	if team == nil {
		return nil
	}
	size, ok := parseTeamSize(team.Value)
	if !ok || size > smallTeamMax {
		return nil
	}

	arch := idx.LookupAny(types.CategoryArchitecture, "style", "architecture", "pattern")
	if arch == nil || !containsAny(arch.Value, ambitiousArchitectures) {
		return nil
	}

	return []Candidate{{
		RuleID:   r.ID(),
		Type:     types.ConflictResource,
		Severity: types.SeverityMedium,
		SpecRefs: []string{arch.ID, team.ID},
		Description: fmt.Sprintf("Architecture %s=%q with a team of %d: the operational surface outstrips the people available to run it.",
			arch.Key, arch.Value, size),
		Impact: []string{
			"Deployment and debugging overhead per service lands on the same few people",
			"On-call burden is unsustainable",
		},
		Options: []types.SolutionOption{
			{
				Label: "Start with a modular monolith",
				Pros:  []string{"One deployable, service boundaries preserved in code"},
				Cons:  []string{"Extraction work later if the team grows"},
				Score: 0.8,
				Effects: []types.Effect{
					{Kind: types.EffectSupersede, SpecRef: arch.ID, NewValue: "modular monolith"},
				},
			},
			{
				Label: "Grow the team first",
				Pros:  []string{"Keeps the target architecture"},
				Cons:  []string{"Hiring is slow and outside this project's control"},
				Score: 0.3,
				Effects: []types.Effect{
					{Kind: types.EffectAnnotate, Note: "architecture retained, contingent on hiring"},
				},
			},
		},
	}}
}

// parseTeamSize extracts a headcount from values like "2", "solo", or
// "3 engineers". "solo" counts as 1.
func parseTeamSize(value string) (int, bool) {
	if containsAny(value, []string{"solo", "just me", "one person"}) {
		return 1, true
	}
	m := intRegex.FindString(value)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}
