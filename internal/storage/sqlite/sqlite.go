package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tenet-io/tenet/internal/types"
)

// Store implements the specification storage backend using SQLite
type Store struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(ctx context.Context, path string) (*Store, error) {
	// Ensure directory exists (skip for in-memory databases)
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginUnit opens one transactional unit of work. The caller owns the unit
// and must Commit or Rollback it; Rollback after Commit is a no-op.
func (s *Store) BeginUnit(ctx context.Context, projectID string) (*Unit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &TransactionError{Op: "begin", Err: err}
	}
	return &Unit{tx: tx, projectID: projectID}, nil
}

// EnsureProject creates the project row if it does not exist yet
func (s *Store) EnsureProject(ctx context.Context, projectID, name string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
		projectID, name)
	if err != nil {
		return fmt.Errorf("failed to ensure project %s: %w", projectID, err)
	}
	return nil
}

// ListProjects returns all known project IDs in creation order
func (s *Store) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM projects ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const specColumns = "id, project_id, category, key, value, confidence, source, status, created_at, COALESCE(supersedes, '')"

func scanSpec(scanner interface{ Scan(...any) error }) (*types.Specification, error) {
	var spec types.Specification
	err := scanner.Scan(&spec.ID, &spec.ProjectID, &spec.Category, &spec.Key, &spec.Value,
		&spec.Confidence, &spec.Source, &spec.Status, &spec.CreatedAt, &spec.Supersedes)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

func querySpecs(ctx context.Context, q queryer, query string, args ...any) ([]*types.Specification, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query specifications: %w", err)
	}
	defer rows.Close()

	var specs []*types.Specification
	for rows.Next() {
		spec, err := scanSpec(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan specification: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetActive returns the current active specification set for a project,
// ordered by insertion time. This ordering matters: maturity contributions
// are applied in insertion order.
func (s *Store) GetActive(ctx context.Context, projectID string) ([]*types.Specification, error) {
	return querySpecs(ctx, s.db,
		"SELECT "+specColumns+" FROM specifications WHERE project_id = ? AND status = 'active' ORDER BY created_at, rowid",
		projectID)
}

// GetSpecification returns one specification by ID regardless of status
func (s *Store) GetSpecification(ctx context.Context, id string) (*types.Specification, error) {
	spec, err := scanSpec(s.db.QueryRowContext(ctx,
		"SELECT "+specColumns+" FROM specifications WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("specification not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get specification %s: %w", id, err)
	}
	return spec, nil
}

// GetHistory returns every version recorded for (project, category, key),
// oldest first. Upsert never deletes, so this is the full supersede chain.
func (s *Store) GetHistory(ctx context.Context, projectID string, category types.Category, key string) ([]*types.Specification, error) {
	return querySpecs(ctx, s.db,
		"SELECT "+specColumns+" FROM specifications WHERE project_id = ? AND category = ? AND key = ? ORDER BY created_at, rowid",
		projectID, category, key)
}

// GetConflict returns one conflict by ID
func (s *Store) GetConflict(ctx context.Context, id string) (*types.Conflict, error) {
	return getConflict(ctx, s.db, id)
}

// ListConflicts returns conflicts for a project, optionally filtered by
// status (empty status means all), newest first.
func (s *Store) ListConflicts(ctx context.Context, projectID string, status types.ConflictStatus) ([]*types.Conflict, error) {
	query := "SELECT " + conflictColumns + " FROM conflicts WHERE project_id = ?"
	args := []any{projectID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY detected_at DESC, id"
	return queryConflicts(ctx, s.db, query, args...)
}

// GetMaturity returns the persisted per-category scores for a project
func (s *Store) GetMaturity(ctx context.Context, projectID string) ([]*types.CategoryScore, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT project_id, category, score, last_updated FROM maturity WHERE project_id = ? ORDER BY category",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query maturity: %w", err)
	}
	defer rows.Close()

	var scores []*types.CategoryScore
	for rows.Next() {
		var cs types.CategoryScore
		if err := rows.Scan(&cs.ProjectID, &cs.Category, &cs.Score, &cs.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan maturity row: %w", err)
		}
		scores = append(scores, &cs)
	}
	return scores, rows.Err()
}

// GetEvents returns the most recent audit events for a project
func (s *Store) GetEvents(ctx context.Context, projectID string, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, event_type, actor, COALESCE(subject_id, ''), COALESCE(detail, ''), created_at
		 FROM events WHERE project_id = ? ORDER BY id DESC LIMIT ?`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var evts []*types.Event
	for rows.Next() {
		var e types.Event
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Type, &e.Actor, &e.SubjectID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evts = append(evts, &e)
	}
	return evts, rows.Err()
}

const conflictColumns = "id, project_id, rule_id, type, severity, status, spec_refs, description, impact, options, detected_at, resolution"

func scanConflict(scanner interface{ Scan(...any) error }) (*types.Conflict, error) {
	var (
		c          types.Conflict
		refsJSON   string
		impactJSON string
		optsJSON   string
		resJSON    sql.NullString
	)
	err := scanner.Scan(&c.ID, &c.ProjectID, &c.RuleID, &c.Type, &c.Severity, &c.Status,
		&refsJSON, &c.Description, &impactJSON, &optsJSON, &c.DetectedAt, &resJSON)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(refsJSON), &c.SpecRefs); err != nil {
		return nil, fmt.Errorf("corrupt spec_refs for conflict %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(impactJSON), &c.Impact); err != nil {
		return nil, fmt.Errorf("corrupt impact for conflict %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(optsJSON), &c.Options); err != nil {
		return nil, fmt.Errorf("corrupt options for conflict %s: %w", c.ID, err)
	}
	if resJSON.Valid && resJSON.String != "" {
		var res types.Resolution
		if err := json.Unmarshal([]byte(resJSON.String), &res); err != nil {
			return nil, fmt.Errorf("corrupt resolution for conflict %s: %w", c.ID, err)
		}
		c.Resolution = &res
	}
	return &c, nil
}

func getConflict(ctx context.Context, q queryer, id string) (*types.Conflict, error) {
	c, err := scanConflict(q.QueryRowContext(ctx,
		"SELECT "+conflictColumns+" FROM conflicts WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conflict not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict %s: %w", id, err)
	}
	return c, nil
}

func queryConflicts(ctx context.Context, q queryer, query string, args ...any) ([]*types.Conflict, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*types.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
