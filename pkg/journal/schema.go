package journal

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT,
    endpoint TEXT,
    outcome TEXT NOT NULL,
    status_code INTEGER,
    bytes INTEGER,
    duration_ms INTEGER,
    error TEXT,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deliveries_recorded_at ON deliveries(recorded_at);
CREATE INDEX IF NOT EXISTS idx_deliveries_outcome ON deliveries(outcome);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;`

const insertEntry = `
INSERT INTO deliveries (request_id, endpoint, outcome, status_code, bytes, duration_ms, error, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`

const selectRecent = `
SELECT id, request_id, endpoint, outcome, status_code, bytes, duration_ms, error, recorded_at
FROM deliveries ORDER BY recorded_at DESC, id DESC LIMIT ?;
`

const selectSummary = `
SELECT outcome, COUNT(*) FROM deliveries WHERE recorded_at >= ? GROUP BY outcome;
`

const deleteBefore = `DELETE FROM deliveries WHERE recorded_at < ?;`
