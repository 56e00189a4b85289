package storage

import (
	"context"

	"github.com/tenet-io/tenet/internal/storage/sqlite"
	"github.com/tenet-io/tenet/internal/types"
)

// Storage defines the interface for specification storage backends
type Storage interface {
	// BeginUnit opens one transactional unit of work scoped to a project.
	// The unit is owned by whoever opened it: only the opener may call
	// Commit or Rollback. Components handed a Unit must never finalize it.
	BeginUnit(ctx context.Context, projectID string) (Unit, error)

	// Projects
	EnsureProject(ctx context.Context, projectID, name string) error
	ListProjects(ctx context.Context) ([]string, error)

	// Specifications (read-only, outside any unit)
	GetActive(ctx context.Context, projectID string) ([]*types.Specification, error)
	GetSpecification(ctx context.Context, id string) (*types.Specification, error)
	GetHistory(ctx context.Context, projectID string, category types.Category, key string) ([]*types.Specification, error)

	// Conflicts
	GetConflict(ctx context.Context, id string) (*types.Conflict, error)
	ListConflicts(ctx context.Context, projectID string, status types.ConflictStatus) ([]*types.Conflict, error)

	// Maturity
	GetMaturity(ctx context.Context, projectID string) ([]*types.CategoryScore, error)

	// Audit trail
	GetEvents(ctx context.Context, projectID string, limit int) ([]*types.Event, error)

	// Lifecycle
	Close() error
}

// Unit is one atomic unit of work. All mutations go through a Unit so an
// AddSpecifications or Resolve call is applied all-or-nothing.
type Unit interface {
	// Upsert applies the supersede-or-reject-duplicate contract for each
	// candidate and returns accepted specifications and rejected duplicates.
	Upsert(ctx context.Context, projectID string, candidates []types.Candidate, actor string) (accepted, duplicates []*types.Specification, err error)

	// ActiveSpecifications returns the post-upsert active set, the exact
	// input the rule engine evaluates.
	ActiveSpecifications(ctx context.Context, projectID string) ([]*types.Specification, error)

	GetConflict(ctx context.Context, id string) (*types.Conflict, error)
	SaveConflict(ctx context.Context, conflict *types.Conflict) error
	Conflicts(ctx context.Context, projectID string) ([]*types.Conflict, error)
	MarkResolved(ctx context.Context, conflictID string, res *types.Resolution) error

	// UpdateEnrichment rewrites the prose and option ranking of an
	// unresolved conflict after a successful semantic judge call. It never
	// touches type, severity, status, or spec refs.
	UpdateEnrichment(ctx context.Context, conflictID, description string, impact []string, options []types.SolutionOption) error

	// SupersedeSpecification replaces the given specification with a new
	// active one carrying newValue. ArchiveSpecification retires one without
	// replacement. Both are resolution effects.
	SupersedeSpecification(ctx context.Context, specID, newValue, actor string) (*types.Specification, error)
	ArchiveSpecification(ctx context.Context, specID, actor string) error

	SaveMaturity(ctx context.Context, report *types.MaturityReport) error
	RecordEvent(ctx context.Context, event *types.Event) error

	Commit() error
	Rollback() error
}

// TransactionError is the typed begin/commit/rollback failure surfaced by
// the sqlite backend. The failed unit leaves no partial state, so callers
// may retry the whole operation.
type TransactionError = sqlite.TransactionError

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path.
	// Default: ".tenet/tenet.db"
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".tenet/tenet.db",
	}
}

// NewStorage creates a new SQLite storage backend
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".tenet/tenet.db"
	}
	store, err := sqlite.New(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	return sqliteStorage{store}, nil
}

// sqliteStorage adapts *sqlite.Store to the Storage interface. The only
// method that needs adapting is BeginUnit, whose concrete return type must
// be lifted to the Unit interface.
type sqliteStorage struct {
	*sqlite.Store
}

func (s sqliteStorage) BeginUnit(ctx context.Context, projectID string) (Unit, error) {
	return s.Store.BeginUnit(ctx, projectID)
}

// Compile-time checks that the sqlite backend satisfies the interfaces
var (
	_ Storage = sqliteStorage{}
	_ Unit    = (*sqlite.Unit)(nil)
)
