package dataset

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the dataset tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS partitions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset    TEXT NOT NULL,
		keys       TEXT NOT NULL,
		uri        TEXT NOT NULL,
		written_at TEXT NOT NULL,
		UNIQUE(dataset, keys)
	)`,

	`CREATE TABLE IF NOT EXISTS records (
		partition_id INTEGER NOT NULL REFERENCES partitions(id) ON DELETE CASCADE,
		seq          INTEGER NOT NULL,
		payload      TEXT NOT NULL,
		PRIMARY KEY (partition_id, seq)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_partitions_dataset ON partitions(dataset)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
