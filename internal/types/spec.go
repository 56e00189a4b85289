package types

import (
	"fmt"
	"strings"
	"time"
)

// Specification represents a single accepted requirement fact for a project,
// scoped by category and key. At most one active specification exists per
// (category, key) within a project; newer values supersede older ones rather
// than overwrite them, so the full history survives for audit.
type Specification struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	Category   Category   `json:"category"`
	Key        string     `json:"key"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Source     Source     `json:"source"`
	Status     SpecStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	// Supersedes holds the ID of the specification this one replaced, if any.
	Supersedes string `json:"supersedes,omitempty"`
}

// Candidate is an incoming specification before acceptance. It arrives from
// the extraction/chat layer and is untrusted until Validate passes.
type Candidate struct {
	Category   Category `json:"category" yaml:"category"`
	Key        string   `json:"key" yaml:"key"`
	Value      string   `json:"value" yaml:"value"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Source     Source   `json:"source,omitempty" yaml:"source,omitempty"`
}

// Validate checks a candidate before any store mutation. A failed candidate
// rejects the whole batch; nothing is persisted.
func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return &ValidationError{Field: "key", Reason: "key is required"}
	}
	if strings.TrimSpace(c.Value) == "" {
		return &ValidationError{Field: "value", Reason: "value is required"}
	}
	if !c.Category.IsValid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category: %s", c.Category)}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: fmt.Sprintf("confidence must be in [0,1] (got %g)", c.Confidence)}
	}
	if !c.Source.IsValid() {
		return &ValidationError{Field: "source", Reason: fmt.Sprintf("unknown source: %s", c.Source)}
	}
	return nil
}

// ValidationError reports a malformed candidate field. It is surfaced to the
// caller before any store mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid candidate: %s: %s", e.Field, e.Reason)
}

// Category groups specifications by concern
type Category string

const (
	CategoryArchitecture Category = "architecture"
	CategoryTechStack    Category = "tech_stack"
	CategoryGoals        Category = "goals"
	CategoryRequirements Category = "requirements"
	CategoryData         Category = "data"
	CategorySecurity     Category = "security"
	CategoryTesting      Category = "testing"
	CategoryBusiness     Category = "business"
	CategoryDevops       Category = "devops"
	CategoryTimeline     Category = "timeline"
	CategoryResources    Category = "resources"
)

// AllCategories lists every known category in a stable order. Maturity
// reports iterate this slice so output ordering is deterministic.
var AllCategories = []Category{
	CategoryArchitecture,
	CategoryTechStack,
	CategoryGoals,
	CategoryRequirements,
	CategoryData,
	CategorySecurity,
	CategoryTesting,
	CategoryBusiness,
	CategoryDevops,
	CategoryTimeline,
	CategoryResources,
}

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Source records where a candidate specification came from
type Source string

const (
	SourceSocratic   Source = "socratic"    // Answer to a guided question
	SourceDirectChat Source = "direct_chat" // Free-form conversational input
	SourceImport     Source = "import"      // Batch file import
)

// IsValid checks if the source value is valid. Empty defaults to direct_chat
// at the store boundary, so it is accepted here.
func (s Source) IsValid() bool {
	switch s {
	case SourceSocratic, SourceDirectChat, SourceImport, "":
		return true
	}
	return false
}

// SpecStatus represents the lifecycle state of a specification
type SpecStatus string

const (
	SpecActive     SpecStatus = "active"
	SpecSuperseded SpecStatus = "superseded"
	SpecArchived   SpecStatus = "archived"
)

// IsValid checks if the status value is valid
func (s SpecStatus) IsValid() bool {
	switch s {
	case SpecActive, SpecSuperseded, SpecArchived:
		return true
	}
	return false
}
