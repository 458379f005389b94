// Package db owns the SQLite file that backs every wall.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/AO-5002/piecewall/internal/config"
)

// FileName is the database file inside the base directory.
const FileName = "piecewall.db"

// migrations are applied in order; migration i moves user_version from i to i+1.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "rooms table",
		sql: `
		CREATE TABLE IF NOT EXISTS rooms (
		  room        TEXT PRIMARY KEY,
		  pieces_json TEXT NOT NULL DEFAULT '[]',
		  version     INTEGER NOT NULL DEFAULT 0,
		  created_at  INTEGER NOT NULL,
		  updated_at  INTEGER NOT NULL
		);`,
	},
	{
		name: "recency index",
		sql: `
		CREATE INDEX IF NOT EXISTS idx_rooms_updated
		ON rooms(updated_at DESC);`,
	},
}

// CurrentSchemaVersion is the user_version after every migration ran.
var CurrentSchemaVersion = len(migrations)

// Init opens (creating if needed) baseDir/piecewall.db in WAL mode and brings
// its schema up to date. It also creates baseDir/exports. Tests pass
// t.TempDir() instead of ~/.piecewall.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "exports")} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		// MkdirAll leaves existing directories alone
		_ = os.Chmod(dir, 0700)
	}

	// Pragmas in the DSN apply to every pooled connection
	dbPath := filepath.Join(baseDir, FileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// ConfigurePool applies the pool limits set in cfg. Zero values keep the
// database/sql defaults.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	for i := version; i < len(migrations); i++ {
		m := migrations[i]
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		if err := SetUserVersion(db, i+1); err != nil {
			return err
		}
	}
	return nil
}

func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion writes the user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
