package store

// SchemaVersion is stamped into PRAGMA user_version. Files with a higher
// version are refused.
const SchemaVersion = 1

// Schema contains the DDL for a profile database.
const Schema = `
-- One row per element name ever ingested. children and attributes are
-- valueset-encoded; '' means the empty set.
CREATE TABLE IF NOT EXISTS elements (
    name        TEXT PRIMARY KEY,
    children    TEXT NOT NULL DEFAULT '',
    attributes  TEXT NOT NULL DEFAULT ''
);

-- One row per (attribute, element) pair. The same attribute name on two
-- elements is two rows.
CREATE TABLE IF NOT EXISTS attributes (
    attribute   TEXT NOT NULL,
    element     TEXT NOT NULL,
    vals        TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (attribute, element)
);
CREATE INDEX IF NOT EXISTS idx_attributes_element ON attributes(element);

-- Element names seen as a document's outermost element.
CREATE TABLE IF NOT EXISTS roots (
    name        TEXT PRIMARY KEY
);

-- One row per Learn run.
CREATE TABLE IF NOT EXISTS ingestions (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL DEFAULT '',
    root        TEXT NOT NULL DEFAULT '',
    elements    INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL DEFAULT 'running',
    error       TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    finished_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_ingestions_started ON ingestions(started_at DESC);
`
