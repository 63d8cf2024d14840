// Package store implements the Store contract (spec §6.1) over sqlite in
// WAL mode, grounded on the teacher's internal/indexer/db.go connection and
// schema-init-on-open pattern. Singular entities (config, engine state,
// budget state) live in single-row tables; collections (objectives, tasks,
// cycles) are keyed by id; append-only sets (scans, plans, runs,
// evaluations, decisions, experiments) are autoincrement logs. Every row is
// a JSON blob of the corresponding domain type — writes go through a single
// transaction so a reader never observes a partial row.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store provides typed load/save operations over a sqlite database file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures its schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS singletons (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS objectives (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cycles (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scans (
		seq  INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS plans (
		seq  INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS runs (
		seq  INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS evaluations (
		seq  INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS decisions (
		seq  INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS experiments (
		seq  INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// saveSingleton upserts one named singleton row, serialized atomically.
func (s *Store) saveSingleton(ctx context.Context, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", name, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO singletons(name, data) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data`,
		name, string(data)); err != nil {
		return fmt.Errorf("store: save %s: %w", name, err)
	}
	return tx.Commit()
}

func (s *Store) loadSingleton(ctx context.Context, name string, out interface{}) (bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM singletons WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: load %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return false, fmt.Errorf("store: unmarshal %s: %w", name, err)
	}
	return true, nil
}

// saveKeyed upserts one row in table keyed by id.
func (s *Store) saveKeyed(ctx context.Context, table, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s %s: %w", table, id, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	q := fmt.Sprintf(`INSERT INTO %s(id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, table)
	if _, err := tx.ExecContext(ctx, q, id, string(data)); err != nil {
		return fmt.Errorf("store: save %s %s: %w", table, id, err)
	}
	return tx.Commit()
}

func (s *Store) deleteKeyed(ctx context.Context, table, id string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)
	_, err := s.db.ExecContext(ctx, q, id)
	return err
}

func (s *Store) getKeyed(ctx context.Context, table, id string, out interface{}) (bool, error) {
	q := fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, table)
	var data string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(data), out)
}

// listRaw returns every row's raw JSON data from table in insertion order;
// callers decode the rows themselves.
func (s *Store) listRaw(ctx context.Context, table string) ([]string, error) {
	q := fmt.Sprintf(`SELECT data FROM %s ORDER BY rowid`, table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, rows.Err()
}

// appendLog inserts one row into an append-only log table.
func (s *Store) appendLog(ctx context.Context, table string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", table, err)
	}
	q := fmt.Sprintf(`INSERT INTO %s(data) VALUES (?)`, table)
	_, err = s.db.ExecContext(ctx, q, string(data))
	return err
}

// decodeAll unmarshals each raw JSON row into T, in order.
func decodeAll[T any](raw []string) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal([]byte(r), &v); err != nil {
			return nil, fmt.Errorf("store: decode: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
