package types

import "time"

// EventType identifies what happened in the audit trail
type EventType string

const (
	// EventSpecAccepted indicates a new specification became active
	EventSpecAccepted EventType = "spec_accepted"
	// EventSpecSuperseded indicates an active specification was replaced
	EventSpecSuperseded EventType = "spec_superseded"
	// EventSpecArchived indicates a specification was archived by a resolution
	EventSpecArchived EventType = "spec_archived"
	// EventDuplicateRejected indicates a candidate matched the active value exactly
	EventDuplicateRejected EventType = "duplicate_rejected"
	// EventConflictDetected indicates the rule engine flagged an incompatibility
	EventConflictDetected EventType = "conflict_detected"
	// EventConflictResolved indicates a conflict reached its terminal state
	EventConflictResolved EventType = "conflict_resolved"
	// EventEnrichmentDegraded indicates the semantic judge failed and the
	// static template was used instead
	EventEnrichmentDegraded EventType = "enrichment_degraded"
	// EventMaturityRecomputed indicates maturity scores were refreshed
	EventMaturityRecomputed EventType = "maturity_recomputed"
)

// Event is one row of the append-only audit trail. Every store mutation,
// conflict detection, and resolution appends one.
type Event struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"project_id"`
	Type      EventType `json:"type"`
	Actor     string    `json:"actor"`
	// SubjectID points at the specification or conflict the event concerns.
	SubjectID string    `json:"subject_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
