// Package resolver applies user decisions to conflicts. The state machine
// is minimal and terminal: unresolved -> resolved, no way back. Re-applying
// a decision to an already-resolved conflict returns the existing
// resolution untouched, so a retried request never double-applies effects.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tenet-io/tenet/internal/storage"
	"github.com/tenet-io/tenet/internal/types"
)

// ErrUnknownOption indicates the chosen label matches none of the
// conflict's solution options.
var ErrUnknownOption = errors.New("chosen option does not match any solution option")

// Resolver applies a chosen solution option inside a unit of work it does
// not own. The caller (the coordinator) opens the unit, holds the
// per-project lock, and commits; the resolver only mutates through it.
type Resolver struct{}

// New creates a resolver
func New() *Resolver {
	return &Resolver{}
}

// Apply resolves the conflict by the chosen option. Returns the resolution
// record and whether it pre-existed (idempotent replay). On replay no store
// effect is applied and the returned record is the original one.
func (r *Resolver) Apply(ctx context.Context, unit storage.Unit, conflictID, chosenOptionLabel, actor string) (*types.Resolution, bool, error) {
	conflict, err := unit.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, false, err
	}

	if conflict.Status == types.ConflictResolved {
		return conflict.Resolution, true, nil
	}

	option := conflict.OptionByLabel(chosenOptionLabel)
	if option == nil {
		labels := make([]string, len(conflict.Options))
		for i, opt := range conflict.Options {
			labels[i] = fmt.Sprintf("%q", opt.Label)
		}
		return nil, false, fmt.Errorf("%w: %q (available: %s)", ErrUnknownOption, chosenOptionLabel, strings.Join(labels, ", "))
	}

	resolution := &types.Resolution{
		ChosenOptionLabel: option.Label,
		ResolvedBy:        actor,
		ResolvedAt:        time.Now().UTC(),
	}

	for _, effect := range option.Effects {
		switch effect.Kind {
		case types.EffectSupersede:
			spec, err := unit.SupersedeSpecification(ctx, effect.SpecRef, effect.NewValue, actor)
			if err != nil {
				return nil, false, fmt.Errorf("failed to apply supersede effect: %w", err)
			}
			resolution.ResultingSpecIDs = append(resolution.ResultingSpecIDs, spec.ID)
		case types.EffectArchive:
			if err := unit.ArchiveSpecification(ctx, effect.SpecRef, actor); err != nil {
				return nil, false, fmt.Errorf("failed to apply archive effect: %w", err)
			}
		case types.EffectAnnotate:
			// No store change; the note lands in the audit trail below.
		default:
			return nil, false, fmt.Errorf("unknown effect kind: %s", effect.Kind)
		}
	}

	if err := unit.MarkResolved(ctx, conflictID, resolution); err != nil {
		return nil, false, err
	}

	detail := fmt.Sprintf("chose %q", option.Label)
	for _, effect := range option.Effects {
		if effect.Kind == types.EffectAnnotate && effect.Note != "" {
			detail += "; " + effect.Note
		}
	}
	if err := unit.RecordEvent(ctx, &types.Event{
		ProjectID: conflict.ProjectID,
		Type:      types.EventConflictResolved,
		Actor:     actor,
		SubjectID: conflictID,
		Detail:    detail,
	}); err != nil {
		return nil, false, err
	}

	return resolution, false, nil
}
