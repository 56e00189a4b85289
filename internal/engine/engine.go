// Package engine is the consistency coordinator: it runs one atomic unit of
// work per request, serialized per project, and owns every transactional
// resource it opens. Internal components (store unit, rule engine,
// resolver, calculator) mutate only through resources the coordinator hands
// them and never finalize those resources themselves.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tenet-io/tenet/internal/judge"
	"github.com/tenet-io/tenet/internal/maturity"
	"github.com/tenet-io/tenet/internal/resolver"
	"github.com/tenet-io/tenet/internal/rules"
	"github.com/tenet-io/tenet/internal/storage"
	"github.com/tenet-io/tenet/internal/types"
)

// Result is what one AddSpecifications call produced
type Result struct {
	Accepted   []*types.Specification `json:"accepted"`
	Duplicates []*types.Specification `json:"duplicates,omitempty"`
	// Conflicts lists only conflicts newly detected by this call.
	Conflicts []*types.Conflict     `json:"conflicts,omitempty"`
	Maturity  *types.MaturityReport `json:"maturity"`
}

// Config holds coordinator configuration
type Config struct {
	Store storage.Storage
	// Rules defaults to the built-in rule set.
	Rules *rules.Engine
	// Judge is the semantic enrichment adapter. Nil means template-only.
	Judge judge.Judge
	// Calculator defaults to a default-weighted calculator.
	Calculator *maturity.Calculator
	// BlockingSeverities defaults to {medium, high}.
	BlockingSeverities []types.Severity
	Logger             *slog.Logger
}

// Engine coordinates the store, rule engine, judge, resolver, and maturity
// calculator under per-project serialization.
type Engine struct {
	store    storage.Storage
	rules    *rules.Engine
	judge    judge.Judge
	calc     *maturity.Calculator
	resolver *resolver.Resolver
	blocking map[types.Severity]bool
	locks    *projectLocks
	log      *slog.Logger
}

// New creates a coordinator
func New(cfg *Config) (*Engine, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	ruleEngine := cfg.Rules
	if ruleEngine == nil {
		ruleEngine = rules.NewEngine()
	}
	calc := cfg.Calculator
	if calc == nil {
		calc = maturity.NewCalculator(nil)
	}
	j := cfg.Judge
	if j == nil {
		j = judge.NewTemplateJudge()
	}
	blocking := cfg.BlockingSeverities
	if len(blocking) == 0 {
		blocking = []types.Severity{types.SeverityMedium, types.SeverityHigh}
	}
	blockingSet := make(map[types.Severity]bool, len(blocking))
	for _, s := range blocking {
		blockingSet[s] = true
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    cfg.Store,
		rules:    ruleEngine,
		judge:    j,
		calc:     calc,
		resolver: resolver.New(),
		blocking: blockingSet,
		locks:    newProjectLocks(),
		log:      log,
	}, nil
}

// AddSpecifications validates and applies a candidate batch as one atomic
// unit: upsert, full-set rule evaluation, conflict persistence with
// template enrichment, and maturity recompute. Semantic enrichment runs
// after commit, outside the per-project lock, and only improves prose and
// ranking; a failed enrichment degrades to the template already persisted.
func (e *Engine) AddSpecifications(ctx context.Context, projectID string, candidates []types.Candidate, actor string) (*Result, error) {
	if projectID == "" {
		return nil, &types.ValidationError{Field: "project_id", Reason: "project id is required"}
	}
	// Validate the whole batch before any store mutation: one malformed
	// candidate rejects the batch and nothing is persisted.
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
	}

	unlock := e.locks.acquire(projectID)
	result, newConflicts, specsByID, err := e.addLocked(ctx, projectID, candidates, actor)
	unlock()
	if err != nil {
		return nil, err
	}

	// Deterministic state is committed; enrichment is advisory from here.
	e.enrichConflicts(ctx, projectID, newConflicts, specsByID, actor)
	result.Conflicts = newConflicts
	return result, nil
}

// addLocked runs the transactional part of AddSpecifications under the
// project lock.
func (e *Engine) addLocked(ctx context.Context, projectID string, candidates []types.Candidate, actor string) (*Result, []*types.Conflict, map[string]*types.Specification, error) {
	if err := e.store.EnsureProject(ctx, projectID, projectID); err != nil {
		return nil, nil, nil, err
	}

	unit, err := e.store.BeginUnit(ctx, projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	defer func() { _ = unit.Rollback() }()

	accepted, duplicates, err := unit.Upsert(ctx, projectID, candidates, actor)
	if err != nil {
		return nil, nil, nil, err
	}

	// The rule engine always sees the full post-upsert active set, never
	// just the delta: conflicts can arise purely between pre-existing facts.
	active, err := unit.ActiveSpecifications(ctx, projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	specsByID := make(map[string]*types.Specification, len(active))
	for _, s := range active {
		specsByID[s.ID] = s
	}

	existing, err := unit.Conflicts(ctx, projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[conflictFingerprint(c)] = true
	}

	var newConflicts []*types.Conflict
	for _, cand := range e.rules.Evaluate(active) {
		if seen[cand.Fingerprint()] {
			continue
		}
		conflict := &types.Conflict{
			ID:          uuid.NewString(),
			ProjectID:   projectID,
			RuleID:      cand.RuleID,
			Type:        cand.Type,
			Severity:    cand.Severity,
			Status:      types.ConflictUnresolved,
			SpecRefs:    cand.SpecRefs,
			Description: cand.Description,
			Impact:      cand.Impact,
			Options:     cand.Options,
			DetectedAt:  time.Now().UTC(),
		}
		if err := unit.SaveConflict(ctx, conflict); err != nil {
			return nil, nil, nil, err
		}
		if err := unit.RecordEvent(ctx, &types.Event{
			ProjectID: projectID,
			Type:      types.EventConflictDetected,
			Actor:     actor,
			SubjectID: conflict.ID,
			Detail:    fmt.Sprintf("%s (%s/%s)", cand.RuleID, cand.Type, cand.Severity),
		}); err != nil {
			return nil, nil, nil, err
		}
		newConflicts = append(newConflicts, conflict)
	}

	report := e.calc.Recompute(projectID, active)
	if err := unit.SaveMaturity(ctx, report); err != nil {
		return nil, nil, nil, err
	}

	if err := unit.Commit(); err != nil {
		return nil, nil, nil, err
	}

	return &Result{
		Accepted:   accepted,
		Duplicates: duplicates,
		Maturity:   report,
	}, newConflicts, specsByID, nil
}

// enrichConflicts calls the semantic judge for each new conflict and writes
// successful enrichments back. Failures are logged and recorded, never
// surfaced: the template persisted at detection time remains authoritative.
func (e *Engine) enrichConflicts(ctx context.Context, projectID string, conflicts []*types.Conflict, specsByID map[string]*types.Specification, actor string) {
	for _, conflict := range conflicts {
		cand := rules.Candidate{
			RuleID:      conflict.RuleID,
			Type:        conflict.Type,
			Severity:    conflict.Severity,
			SpecRefs:    conflict.SpecRefs,
			Description: conflict.Description,
			Impact:      conflict.Impact,
			Options:     conflict.Options,
		}
		var specs []*types.Specification
		for _, ref := range conflict.SpecRefs {
			if s, ok := specsByID[ref]; ok {
				specs = append(specs, s)
			}
		}

		enrichment, err := e.judge.Enrich(ctx, cand, specs)
		if err != nil {
			e.log.Warn("semantic judge degraded, keeping template enrichment",
				"conflict", conflict.ID, "rule", conflict.RuleID, "error", err)
			e.recordDegraded(ctx, projectID, conflict.ID, actor, err)
			continue
		}

		merged := judge.MergeOptions(conflict.Options, enrichment.Options)
		if err := e.applyEnrichment(ctx, projectID, conflict.ID, enrichment.Description, enrichment.Impact, merged); err != nil {
			e.log.Warn("failed to persist enrichment", "conflict", conflict.ID, "error", err)
			continue
		}
		conflict.Description = enrichment.Description
		conflict.Impact = enrichment.Impact
		conflict.Options = merged
	}
}

func (e *Engine) applyEnrichment(ctx context.Context, projectID, conflictID, description string, impact []string, options []types.SolutionOption) error {
	unlock := e.locks.acquire(projectID)
	defer unlock()

	unit, err := e.store.BeginUnit(ctx, projectID)
	if err != nil {
		return err
	}
	defer func() { _ = unit.Rollback() }()

	if err := unit.UpdateEnrichment(ctx, conflictID, description, impact, options); err != nil {
		return err
	}
	return unit.Commit()
}

func (e *Engine) recordDegraded(ctx context.Context, projectID, conflictID, actor string, cause error) {
	unlock := e.locks.acquire(projectID)
	defer unlock()

	unit, err := e.store.BeginUnit(ctx, projectID)
	if err != nil {
		return
	}
	defer func() { _ = unit.Rollback() }()

	if err := unit.RecordEvent(ctx, &types.Event{
		ProjectID: projectID,
		Type:      types.EventEnrichmentDegraded,
		Actor:     actor,
		SubjectID: conflictID,
		Detail:    cause.Error(),
	}); err != nil {
		return
	}
	_ = unit.Commit()
}

// Resolve applies a user decision to one conflict as its own unit of work.
// Re-resolving an already-resolved conflict is an idempotent no-op that
// returns the original resolution.
func (e *Engine) Resolve(ctx context.Context, conflictID, chosenOptionLabel, actor string) (*types.Resolution, error) {
	// The conflict's project scopes the lock; look it up outside the unit.
	conflict, err := e.store.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	projectID := conflict.ProjectID

	unlock := e.locks.acquire(projectID)
	defer unlock()

	unit, err := e.store.BeginUnit(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback() }()

	resolution, replayed, err := e.resolver.Apply(ctx, unit, conflictID, chosenOptionLabel, actor)
	if err != nil {
		return nil, err
	}
	if replayed {
		// Nothing was applied; nothing to commit.
		return resolution, nil
	}

	// Resolution effects may have superseded or archived specifications, so
	// maturity is recomputed inside the same unit. This is the one place a
	// category score may legitimately drop.
	active, err := unit.ActiveSpecifications(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report := e.calc.Recompute(projectID, active)
	if err := unit.SaveMaturity(ctx, report); err != nil {
		return nil, err
	}

	if err := unit.Commit(); err != nil {
		return nil, err
	}
	return resolution, nil
}

// CanAdvancePhase reports whether the project may move to its next phase:
// true iff no unresolved conflict with a blocking severity exists.
func (e *Engine) CanAdvancePhase(ctx context.Context, projectID string) (bool, []*types.Conflict, error) {
	unresolved, err := e.store.ListConflicts(ctx, projectID, types.ConflictUnresolved)
	if err != nil {
		return false, nil, err
	}
	var blocking []*types.Conflict
	for _, c := range unresolved {
		if e.blocking[c.Severity] {
			blocking = append(blocking, c)
		}
	}
	return len(blocking) == 0, blocking, nil
}

// CheckAdvance is the error-shaped gate: it returns a ConflictBlockedError
// carrying the blockers when the project cannot advance.
func (e *Engine) CheckAdvance(ctx context.Context, projectID string) error {
	ok, blocking, err := e.CanAdvancePhase(ctx, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return &ConflictBlockedError{ProjectID: projectID, Blocking: blocking}
	}
	return nil
}

// Repair recomputes maturity from scratch and reconciles the persisted
// scores. Returns the categories whose stored value disagreed with the
// recomputed one; a non-empty result indicates a bug elsewhere, since the
// persisted table must always be derivable from the active set.
func (e *Engine) Repair(ctx context.Context, projectID string, actor string) (map[types.Category][2]float64, error) {
	unlock := e.locks.acquire(projectID)
	defer unlock()

	unit, err := e.store.BeginUnit(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback() }()

	active, err := unit.ActiveSpecifications(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report := e.calc.Recompute(projectID, active)

	stored, err := e.store.GetMaturity(ctx, projectID)
	if err != nil {
		return nil, err
	}
	storedByCat := make(map[types.Category]float64, len(stored))
	for _, cs := range stored {
		storedByCat[cs.Category] = cs.Score
	}

	drift := make(map[types.Category][2]float64)
	for cat, score := range report.Categories {
		if prev, ok := storedByCat[cat]; ok && prev != score {
			drift[cat] = [2]float64{prev, score}
		}
	}

	if err := unit.SaveMaturity(ctx, report); err != nil {
		return nil, err
	}
	if len(drift) > 0 {
		if err := unit.RecordEvent(ctx, &types.Event{
			ProjectID: projectID,
			Type:      types.EventMaturityRecomputed,
			Actor:     actor,
			Detail:    fmt.Sprintf("repair corrected %d categorie(s)", len(drift)),
		}); err != nil {
			return nil, err
		}
	}
	if err := unit.Commit(); err != nil {
		return nil, err
	}
	return drift, nil
}

// conflictFingerprint mirrors rules.Candidate.Fingerprint for persisted rows
func conflictFingerprint(c *types.Conflict) string {
	cand := rules.Candidate{RuleID: c.RuleID, SpecRefs: c.SpecRefs}
	return cand.Fingerprint()
}
