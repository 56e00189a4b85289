package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tenet-io/tenet/internal/types"
)

// Unit implements one transactional unit of work over a *sql.Tx. It is
// created by Store.BeginUnit and finalized exactly once by its opener.
type Unit struct {
	tx        *sql.Tx
	projectID string
	done      bool
}

// Commit commits the unit. Calling it twice is an error.
func (u *Unit) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finalized")
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return &TransactionError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback rolls the unit back. Safe to defer after Commit: a rollback on a
// finalized unit is a no-op.
func (u *Unit) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil {
		return &TransactionError{Op: "rollback", Err: err}
	}
	return nil
}

// Upsert applies the store contract for each candidate in order:
//   - no active spec for (category, key): insert as active
//   - active spec with identical value: reject as duplicate, no new version
//   - active spec with different value: insert new active, mark prior
//     superseded and record the pointer
//
// Rows are never deleted; the supersede chain is the version history.
func (u *Unit) Upsert(ctx context.Context, projectID string, candidates []types.Candidate, actor string) (accepted, duplicates []*types.Specification, err error) {
	for _, cand := range candidates {
		source := cand.Source
		if source == "" {
			source = types.SourceDirectChat
		}

		prior, err := u.activeByKey(ctx, projectID, cand.Category, cand.Key)
		if err != nil {
			return nil, nil, err
		}

		if prior != nil && prior.Value == cand.Value {
			duplicates = append(duplicates, prior)
			if err := u.RecordEvent(ctx, &types.Event{
				ProjectID: projectID,
				Type:      types.EventDuplicateRejected,
				Actor:     actor,
				SubjectID: prior.ID,
				Detail:    fmt.Sprintf("%s/%s already %q", cand.Category, cand.Key, cand.Value),
			}); err != nil {
				return nil, nil, err
			}
			continue
		}

		spec := &types.Specification{
			ID:         uuid.NewString(),
			ProjectID:  projectID,
			Category:   cand.Category,
			Key:        strings.TrimSpace(cand.Key),
			Value:      cand.Value,
			Confidence: cand.Confidence,
			Source:     source,
			Status:     types.SpecActive,
			CreatedAt:  nowUTC(),
		}

		if prior != nil {
			spec.Supersedes = prior.ID
			if err := u.markStatus(ctx, prior.ID, types.SpecSuperseded); err != nil {
				return nil, nil, err
			}
			if err := u.RecordEvent(ctx, &types.Event{
				ProjectID: projectID,
				Type:      types.EventSpecSuperseded,
				Actor:     actor,
				SubjectID: prior.ID,
				Detail:    fmt.Sprintf("%s/%s: %q -> %q", cand.Category, cand.Key, prior.Value, cand.Value),
			}); err != nil {
				return nil, nil, err
			}
		}

		if err := u.insertSpec(ctx, spec); err != nil {
			return nil, nil, err
		}
		if err := u.RecordEvent(ctx, &types.Event{
			ProjectID: projectID,
			Type:      types.EventSpecAccepted,
			Actor:     actor,
			SubjectID: spec.ID,
			Detail:    fmt.Sprintf("%s/%s = %q (confidence %.2f)", spec.Category, spec.Key, spec.Value, spec.Confidence),
		}); err != nil {
			return nil, nil, err
		}
		accepted = append(accepted, spec)
	}
	return accepted, duplicates, nil
}

func (u *Unit) activeByKey(ctx context.Context, projectID string, category types.Category, key string) (*types.Specification, error) {
	spec, err := scanSpec(u.tx.QueryRowContext(ctx,
		"SELECT "+specColumns+" FROM specifications WHERE project_id = ? AND category = ? AND key = ? AND status = 'active'",
		projectID, category, strings.TrimSpace(key)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up active spec %s/%s: %w", category, key, err)
	}
	return spec, nil
}

func (u *Unit) insertSpec(ctx context.Context, spec *types.Specification) error {
	var supersedes any
	if spec.Supersedes != "" {
		supersedes = spec.Supersedes
	}
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO specifications (id, project_id, category, key, value, confidence, source, status, created_at, supersedes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		spec.ID, spec.ProjectID, spec.Category, spec.Key, spec.Value,
		spec.Confidence, spec.Source, spec.Status, spec.CreatedAt, supersedes)
	if err != nil {
		return fmt.Errorf("failed to insert specification %s/%s: %w", spec.Category, spec.Key, err)
	}
	return nil
}

func (u *Unit) markStatus(ctx context.Context, specID string, status types.SpecStatus) error {
	res, err := u.tx.ExecContext(ctx,
		"UPDATE specifications SET status = ? WHERE id = ?", status, specID)
	if err != nil {
		return fmt.Errorf("failed to mark specification %s %s: %w", specID, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of specification %s: %w", specID, err)
	}
	if n == 0 {
		return fmt.Errorf("specification not found: %s", specID)
	}
	return nil
}

// ActiveSpecifications returns the active set inside this unit, including
// rows written earlier in the same transaction.
func (u *Unit) ActiveSpecifications(ctx context.Context, projectID string) ([]*types.Specification, error) {
	return querySpecs(ctx, u.tx,
		"SELECT "+specColumns+" FROM specifications WHERE project_id = ? AND status = 'active' ORDER BY created_at, rowid",
		projectID)
}

// GetConflict returns one conflict by ID inside this unit
func (u *Unit) GetConflict(ctx context.Context, id string) (*types.Conflict, error) {
	return getConflict(ctx, u.tx, id)
}

// SaveConflict inserts a newly detected conflict
func (u *Unit) SaveConflict(ctx context.Context, c *types.Conflict) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid conflict: %w", err)
	}
	refsJSON, err := json.Marshal(c.SpecRefs)
	if err != nil {
		return fmt.Errorf("failed to encode spec refs: %w", err)
	}
	impactJSON, err := json.Marshal(c.Impact)
	if err != nil {
		return fmt.Errorf("failed to encode impact: %w", err)
	}
	optsJSON, err := json.Marshal(c.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	_, err = u.tx.ExecContext(ctx, `
		INSERT INTO conflicts (id, project_id, rule_id, type, severity, status, spec_refs, description, impact, options, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.RuleID, c.Type, c.Severity, c.Status,
		string(refsJSON), c.Description, string(impactJSON), string(optsJSON), c.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to insert conflict %s: %w", c.ID, err)
	}
	return nil
}

// Conflicts returns every conflict for a project regardless of status,
// oldest first. The coordinator fingerprints these to avoid re-recording a
// finding it already persisted.
func (u *Unit) Conflicts(ctx context.Context, projectID string) ([]*types.Conflict, error) {
	return queryConflicts(ctx, u.tx,
		"SELECT "+conflictColumns+" FROM conflicts WHERE project_id = ? ORDER BY detected_at, rowid",
		projectID)
}

// UpdateEnrichment rewrites prose and option ranking on an unresolved
// conflict. Resolved conflicts are immutable; the status guard enforces it.
func (u *Unit) UpdateEnrichment(ctx context.Context, conflictID, description string, impact []string, options []types.SolutionOption) error {
	impactJSON, err := json.Marshal(impact)
	if err != nil {
		return fmt.Errorf("failed to encode impact: %w", err)
	}
	optsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	result, err := u.tx.ExecContext(ctx,
		"UPDATE conflicts SET description = ?, impact = ?, options = ? WHERE id = ? AND status = 'unresolved'",
		description, string(impactJSON), string(optsJSON), conflictID)
	if err != nil {
		return fmt.Errorf("failed to update enrichment for conflict %s: %w", conflictID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check enrichment update for conflict %s: %w", conflictID, err)
	}
	if n == 0 {
		return fmt.Errorf("conflict %s is not unresolved", conflictID)
	}
	return nil
}

// MarkResolved transitions a conflict to its terminal state. The conflict
// must still be unresolved; idempotence is handled above this layer by
// returning the existing resolution instead of calling MarkResolved again.
func (u *Unit) MarkResolved(ctx context.Context, conflictID string, res *types.Resolution) error {
	resJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode resolution: %w", err)
	}
	result, err := u.tx.ExecContext(ctx,
		"UPDATE conflicts SET status = 'resolved', resolution = ? WHERE id = ? AND status = 'unresolved'",
		string(resJSON), conflictID)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict %s: %w", conflictID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolution of conflict %s: %w", conflictID, err)
	}
	if n == 0 {
		return fmt.Errorf("conflict %s is not unresolved", conflictID)
	}
	return nil
}

// SupersedeSpecification applies a supersede effect: the referenced spec is
// retired and a new active one with newValue takes its place. Confidence is
// set to 1.0 because the value was an explicit user decision.
func (u *Unit) SupersedeSpecification(ctx context.Context, specID, newValue, actor string) (*types.Specification, error) {
	prior, err := scanSpec(u.tx.QueryRowContext(ctx,
		"SELECT "+specColumns+" FROM specifications WHERE id = ?", specID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("specification not found: %s", specID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load specification %s: %w", specID, err)
	}
	if prior.Status != types.SpecActive {
		return nil, fmt.Errorf("specification %s is not active (status: %s)", specID, prior.Status)
	}

	if err := u.markStatus(ctx, prior.ID, types.SpecSuperseded); err != nil {
		return nil, err
	}

	spec := &types.Specification{
		ID:         uuid.NewString(),
		ProjectID:  prior.ProjectID,
		Category:   prior.Category,
		Key:        prior.Key,
		Value:      newValue,
		Confidence: 1.0,
		Source:     prior.Source,
		Status:     types.SpecActive,
		CreatedAt:  nowUTC(),
		Supersedes: prior.ID,
	}
	if err := u.insertSpec(ctx, spec); err != nil {
		return nil, err
	}
	if err := u.RecordEvent(ctx, &types.Event{
		ProjectID: prior.ProjectID,
		Type:      types.EventSpecSuperseded,
		Actor:     actor,
		SubjectID: prior.ID,
		Detail:    fmt.Sprintf("%s/%s: %q -> %q (conflict resolution)", prior.Category, prior.Key, prior.Value, newValue),
	}); err != nil {
		return nil, err
	}
	return spec, nil
}

// ArchiveSpecification applies an archive effect: the referenced spec is
// retired without replacement.
func (u *Unit) ArchiveSpecification(ctx context.Context, specID, actor string) error {
	prior, err := scanSpec(u.tx.QueryRowContext(ctx,
		"SELECT "+specColumns+" FROM specifications WHERE id = ?", specID))
	if err == sql.ErrNoRows {
		return fmt.Errorf("specification not found: %s", specID)
	}
	if err != nil {
		return fmt.Errorf("failed to load specification %s: %w", specID, err)
	}
	if prior.Status != types.SpecActive {
		return fmt.Errorf("specification %s is not active (status: %s)", specID, prior.Status)
	}
	if err := u.markStatus(ctx, specID, types.SpecArchived); err != nil {
		return err
	}
	return u.RecordEvent(ctx, &types.Event{
		ProjectID: prior.ProjectID,
		Type:      types.EventSpecArchived,
		Actor:     actor,
		SubjectID: specID,
		Detail:    fmt.Sprintf("%s/%s = %q archived (conflict resolution)", prior.Category, prior.Key, prior.Value),
	})
}

// SaveMaturity replaces the persisted scores with the given report
func (u *Unit) SaveMaturity(ctx context.Context, report *types.MaturityReport) error {
	for cat, score := range report.Categories {
		_, err := u.tx.ExecContext(ctx, `
			INSERT INTO maturity (project_id, category, score, last_updated)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(project_id, category) DO UPDATE SET score = excluded.score, last_updated = excluded.last_updated`,
			report.ProjectID, cat, score, report.ComputedAt)
		if err != nil {
			return fmt.Errorf("failed to save maturity for %s: %w", cat, err)
		}
	}
	return nil
}

// RecordEvent appends one audit trail row
func (u *Unit) RecordEvent(ctx context.Context, e *types.Event) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = nowUTC()
	}
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO events (project_id, event_type, actor, subject_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ProjectID, e.Type, e.Actor, e.SubjectID, e.Detail, created)
	if err != nil {
		return fmt.Errorf("failed to record event %s: %w", e.Type, err)
	}
	return nil
}
