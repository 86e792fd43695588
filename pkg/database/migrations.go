package database

// migration holds a single schema migration with its target version and statements.
// Statements are plain SQL accepted by both SQLite and PostgreSQL.
type migration struct {
	version    int
	statements []string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS watches (
	id                 TEXT PRIMARY KEY,
	from_code          TEXT NOT NULL,
	to_code            TEXT NOT NULL,
	depart_date        TEXT NOT NULL,
	target_price       DOUBLE PRECISION NOT NULL,
	email              TEXT NOT NULL,
	active             BOOLEAN NOT NULL DEFAULT TRUE,
	created_at         TIMESTAMP NOT NULL,
	last_check         TIMESTAMP,
	last_match         TIMESTAMP,
	matched_price      INTEGER,
	notification_count INTEGER NOT NULL DEFAULT 0
)`,
			`CREATE INDEX IF NOT EXISTS idx_watches_active ON watches(active)`,
			`CREATE INDEX IF NOT EXISTS idx_watches_created ON watches(created_at, id)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`ALTER TABLE watches ADD COLUMN last_notification TIMESTAMP`,
			`ALTER TABLE watches ADD COLUMN dispatch_failures INTEGER NOT NULL DEFAULT 0`,
		},
	},
}

const createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
)`
