package types

import (
	"fmt"
	"strings"
	"time"
)

// Conflict represents a detected incompatibility between two or more active
// specifications. Conflicts are created by the rule engine (via the
// coordinator) and resolved only by the resolver; once resolved they are
// immutable apart from the Resolution field.
type Conflict struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"project_id"`
	RuleID      string           `json:"rule_id"`
	Type        ConflictType     `json:"type"`
	Severity    Severity         `json:"severity"`
	Status      ConflictStatus   `json:"status"`
	SpecRefs    []string         `json:"spec_refs"` // ordered, len >= 2
	Description string           `json:"description"`
	Impact      []string         `json:"impact"`
	Options     []SolutionOption `json:"solution_options"` // non-empty while unresolved
	DetectedAt  time.Time        `json:"detected_at"`
	Resolution  *Resolution      `json:"resolution,omitempty"`
}

// Validate checks structural invariants on a conflict record.
func (c *Conflict) Validate() error {
	if len(c.SpecRefs) < 2 {
		return fmt.Errorf("conflict must reference at least 2 specifications (got %d)", len(c.SpecRefs))
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid conflict type: %s", c.Type)
	}
	if !c.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", c.Severity)
	}
	if c.Status == ConflictUnresolved && len(c.Options) == 0 {
		return fmt.Errorf("unresolved conflict must carry at least one solution option")
	}
	if c.Status == ConflictResolved && c.Resolution == nil {
		return fmt.Errorf("resolved conflict must carry a resolution record")
	}
	return nil
}

// OptionByLabel returns the solution option with the given label, or nil.
// Matching is case-insensitive so CLI input does not have to reproduce the
// label's exact casing.
func (c *Conflict) OptionByLabel(label string) *SolutionOption {
	for i := range c.Options {
		if strings.EqualFold(c.Options[i].Label, label) {
			return &c.Options[i]
		}
	}
	return nil
}

// ConflictType categorizes the kind of incompatibility
type ConflictType string

const (
	ConflictTechnology  ConflictType = "technology"
	ConflictRequirement ConflictType = "requirement"
	ConflictTimeline    ConflictType = "timeline"
	ConflictResource    ConflictType = "resource"
)

// IsValid checks if the conflict type value is valid
func (t ConflictType) IsValid() bool {
	switch t {
	case ConflictTechnology, ConflictRequirement, ConflictTimeline, ConflictResource:
		return true
	}
	return false
}

// Severity classifies how strongly a conflict blocks progress. Medium and
// high severities block phase advancement by default; low is advisory.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IsValid checks if the severity value is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// ConflictStatus is the resolver state machine: unresolved -> resolved,
// terminal, no way back.
type ConflictStatus string

const (
	ConflictUnresolved ConflictStatus = "unresolved"
	ConflictResolved   ConflictStatus = "resolved"
)

// SolutionOption is one ranked way out of a conflict. Every option declares
// a structured effect so applying it is deterministic; prose fields are for
// presentation only.
type SolutionOption struct {
	Label   string   `json:"label"`
	Pros    []string `json:"pros,omitempty"`
	Cons    []string `json:"cons,omitempty"`
	Score   float64  `json:"score"` // in [0,1], higher means more recommended
	Effects []Effect `json:"effects,omitempty"`
}

// EffectKind names the store mutation an effect performs
type EffectKind string

const (
	// EffectSupersede replaces the referenced specification with NewValue.
	EffectSupersede EffectKind = "supersede"
	// EffectArchive marks the referenced specification archived.
	EffectArchive EffectKind = "archive"
	// EffectAnnotate records the decision without touching the store.
	EffectAnnotate EffectKind = "annotate"
)

// Effect is a single structured store mutation declared by a solution option.
type Effect struct {
	Kind     EffectKind `json:"kind"`
	SpecRef  string     `json:"spec_ref,omitempty"`
	NewValue string     `json:"new_value,omitempty"`
	Note     string     `json:"note,omitempty"`
}

// Resolution records how and when a conflict was settled.
type Resolution struct {
	ChosenOptionLabel string    `json:"chosen_option_label"`
	ResolvedBy        string    `json:"resolved_by"`
	ResolvedAt        time.Time `json:"resolved_at"`
	// ResultingSpecIDs lists specifications created by applying the option's
	// effects (empty for annotate-only resolutions).
	ResultingSpecIDs []string `json:"resulting_spec_ids,omitempty"`
}
