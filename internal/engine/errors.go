package engine

import (
	"fmt"

	"github.com/tenet-io/tenet/internal/types"
)

// ConflictBlockedError is returned when a caller attempts to advance phase
// while unresolved blocking conflicts exist. It carries the blockers so the
// caller can present them.
type ConflictBlockedError struct {
	ProjectID string
	Blocking  []*types.Conflict
}

func (e *ConflictBlockedError) Error() string {
	return fmt.Sprintf("project %s has %d unresolved blocking conflict(s)", e.ProjectID, len(e.Blocking))
}
