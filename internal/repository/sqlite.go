package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// banRow is the region value of the row that keeps the ban flag of a user
// without subscriptions.
const banRow = ""

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dsn := path
	inMemory := path == ":memory:"
	if !inMemory {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if inMemory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory %q: %w", dir, err)
	}
	return nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS alert_states (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			region TEXT NOT NULL,
			hazard_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			is_banned INTEGER NOT NULL DEFAULT 0,
			UNIQUE(user_id, region)
		);

		CREATE INDEX IF NOT EXISTS idx_alert_states_key ON alert_states(region, hazard_type, id);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_region ON subscriptions(region);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Ping() error {
	return s.db.Ping()
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
