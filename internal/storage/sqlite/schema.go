package sqlite

const schema = `
-- Projects table
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Specifications table (versioned; rows are never deleted)
CREATE TABLE IF NOT EXISTS specifications (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    category TEXT NOT NULL,
    key TEXT NOT NULL CHECK(length(key) > 0),
    value TEXT NOT NULL,
    confidence REAL NOT NULL CHECK(confidence >= 0 AND confidence <= 1),
    source TEXT NOT NULL DEFAULT 'direct_chat',
    status TEXT NOT NULL DEFAULT 'active',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    supersedes TEXT,
    FOREIGN KEY (project_id) REFERENCES projects(id)
);

-- At most one active specification per (project, category, key)
CREATE UNIQUE INDEX IF NOT EXISTS idx_specs_active
    ON specifications(project_id, category, key) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_specs_project ON specifications(project_id);
CREATE INDEX IF NOT EXISTS idx_specs_status ON specifications(project_id, status);

-- Conflicts table; list-valued fields are stored as JSON
CREATE TABLE IF NOT EXISTS conflicts (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    type TEXT NOT NULL,
    severity TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'unresolved',
    spec_refs TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    impact TEXT NOT NULL DEFAULT '[]',
    options TEXT NOT NULL DEFAULT '[]',
    detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    resolution TEXT,
    FOREIGN KEY (project_id) REFERENCES projects(id)
);

CREATE INDEX IF NOT EXISTS idx_conflicts_project ON conflicts(project_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_status ON conflicts(project_id, status);

-- Maturity table (derived cache, recomputable from specifications)
CREATE TABLE IF NOT EXISTS maturity (
    project_id TEXT NOT NULL,
    category TEXT NOT NULL,
    score REAL NOT NULL CHECK(score >= 0 AND score <= 100),
    last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (project_id, category),
    FOREIGN KEY (project_id) REFERENCES projects(id)
);

-- Events table (append-only audit trail)
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL,
    subject_id TEXT,
    detail TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (project_id) REFERENCES projects(id)
);

CREATE INDEX IF NOT EXISTS idx_events_project ON events(project_id);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
`
