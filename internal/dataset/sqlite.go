package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/gokite/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma fk: %w", err)
		}
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "dataset-store"),
	}, nil
}

// dsn applies the connection pragmas through the DSN so that every pooled
// connection gets them, not only the first one.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// Write replaces the partition at uri in a single transaction, so readers
// never see a partially written partition.
func (s *SQLiteStore) Write(ctx context.Context, uri string, records []model.Record) error {
	addr, err := ParseAddress(uri)
	if err != nil {
		return err
	}
	keys := addr.PartitionKey()
	s.logger.Debug("sql", "op", "write", "dataset", addr.Dataset, "keys", keys, "records", len(records))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM partitions WHERE dataset = ? AND keys = ?`, addr.Dataset, keys); err != nil {
		return fmt.Errorf("delete partition %s: %w", uri, err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO partitions (dataset, keys, uri, written_at) VALUES (?, ?, ?, ?)`,
		addr.Dataset, keys, uri, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert partition %s: %w", uri, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("partition id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (partition_id, seq, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare records: %w", err)
	}
	defer stmt.Close()
	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, string(payload)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Read returns the records of every partition covered by uri, partitions in
// key order and records in write order. No matching partition yields an
// empty result.
func (s *SQLiteStore) Read(ctx context.Context, uri string) ([]model.Record, error) {
	addr, err := ParseAddress(uri)
	if err != nil {
		return nil, err
	}
	parts, err := s.Partitions(ctx, addr.Dataset)
	if err != nil {
		return nil, err
	}

	var out []model.Record
	for _, p := range parts {
		if !addr.Matches(p.Keys) {
			continue
		}
		recs, err := s.readPartition(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p.URI, err)
		}
		out = append(out, recs...)
	}
	s.logger.Debug("sql", "op", "read", "uri", uri, "records", len(out))
	return out, nil
}

func (s *SQLiteStore) readPartition(ctx context.Context, id int64) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE partition_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		rec := model.Record{}
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Partitions lists the partitions of dataset in key order.
func (s *SQLiteStore) Partitions(ctx context.Context, dataset string) ([]Partition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.dataset, p.keys, p.uri, p.written_at, COUNT(r.seq)
		FROM partitions p LEFT JOIN records r ON r.partition_id = p.id
		WHERE p.dataset = ?
		GROUP BY p.id`, dataset)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer rows.Close()

	var out []Partition
	for rows.Next() {
		var p Partition
		var written string
		if err := rows.Scan(&p.ID, &p.Dataset, &p.Keys, &p.URI, &written, &p.Records); err != nil {
			return nil, fmt.Errorf("scan partition: %w", err)
		}
		p.WrittenAt, _ = time.Parse(time.RFC3339Nano, written)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortPartitions(out)
	return out, nil
}
