package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agendauth/agendauth/internal/assets"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

// SqliteStore is the default single-node backend, one table of
// (collection, key, value) rows with JSON values.
type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(databasePath string) (*SqliteStore, error) {
	dir := filepath.Dir(databasePath)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", databasePath)

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc sqlite does not tolerate concurrent writers on one file
	db.SetMaxOpenConns(1)

	if err := migrateDatabase(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SqliteStore{db: db}, nil
}

func migrateDatabase(db *sql.DB) error {
	migrations, err := iofs.New(assets.Migrations, "migrations")

	if err != nil {
		return fmt.Errorf("failed to create migrations: %w", err)
	}

	target, err := sqlite3.WithInstance(db, &sqlite3.Config{})

	if err != nil {
		return fmt.Errorf("failed to create sqlite3 instance: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", migrations, "sqlite3", target)

	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func (s *SqliteStore) Get(ctx context.Context, collection string, key string) ([]byte, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE collection = ? AND "key" = ?`,
		collection, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *SqliteStore) Put(ctx context.Context, collection string, key string, value []byte) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, "key", value) VALUES (?, ?, ?)
		 ON CONFLICT (collection, "key") DO UPDATE SET value = excluded.value`,
		collection, key, value,
	)

	return err
}

func (s *SqliteStore) Delete(ctx context.Context, collection string, key string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND "key" = ?`,
		collection, key,
	)

	return err
}

func (s *SqliteStore) Scan(ctx context.Context, collection string, field string, value string) (map[string][]byte, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT "key", value FROM records WHERE collection = ? AND json_extract(value, '$.' || ?) = ?`,
		collection, field, value,
	)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	results := make(map[string][]byte)

	for rows.Next() {
		var key string
		var record []byte
		if err := rows.Scan(&key, &record); err != nil {
			return nil, err
		}
		results[key] = record
	}

	return results, rows.Err()
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	ctx, cancel := opContext(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}
