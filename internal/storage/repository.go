package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps records in a single SQLite table.
type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

// Ping checks the database is reachable and still at the schema version it
// was opened with.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return err
	}
	var (
		version uint
		dirty   bool
	)
	if err := r.db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	if version != r.schemaVersion {
		return fmt.Errorf("schema version changed from %d to %d", r.schemaVersion, version)
	}
	return nil
}

func (r *SQLiteRepository) Save(ctx context.Context, name string, payload []byte) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stores (name, payload, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			version = stores.version + 1,
			updated_at = excluded.updated_at
		RETURNING version`,
		name, string(payload), time.Now().UTC(),
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("save record %s: %w", name, err)
	}

	slog.DebugContext(ctx, "Record saved to SQLite",
		"store", name,
		"version", version,
		"bytes", len(payload))
	return version, nil
}

func (r *SQLiteRepository) Load(ctx context.Context, name string) (Stored, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, payload, version, synced_version, updated_at
		FROM stores WHERE name = ?`, name)
	rec, err := scanStored(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Stored{}, fmt.Errorf("load record %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Stored{}, fmt.Errorf("load record %s: %w", name, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, name string, version int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE stores SET synced_version = ?, synced_at = ?
		WHERE name = ? AND synced_version < ?`,
		version, time.Now().UTC(), name, version)
	if err != nil {
		return fmt.Errorf("mark record %s synced: %w", name, err)
	}

	slog.InfoContext(ctx, "Record marked as synced", "store", name, "version", version)
	return nil
}

func (r *SQLiteRepository) Pending(ctx context.Context) ([]Stored, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, payload, version, synced_version, updated_at
		FROM stores WHERE synced_version < version
		ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("query pending records: %w", err)
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		rec, err := scanStored(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStored(s scanner) (Stored, error) {
	var (
		rec     Stored
		payload string
	)
	if err := s.Scan(&rec.Name, &payload, &rec.Version, &rec.SyncedVersion, &rec.UpdatedAt); err != nil {
		return Stored{}, err
	}
	rec.Payload = []byte(payload)
	return rec, nil
}
