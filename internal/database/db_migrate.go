package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path"
	"strconv"
	"strings"
)

// migrationPrefix is the only database type klkchan migrates, files are NNNN_main_<desc>.sql
const migrationPrefix = "main"

// MigrationFile is one embedded schema change
type MigrationFile struct {
	FileName    string
	Version     int
	Description string
	FilePath    string
}

// Migrate applies pending embedded migrations, each in its own transaction
func (db *Database) Migrate() error {
	ctx := context.Background()
	if _, err := db.mainDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL UNIQUE,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	migrations, err := embeddedMigrations()
	if err != nil {
		return err
	}
	applied, err := db.appliedSet()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.FileName] {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to migrate main database: %w", err)
		}
		log.Printf("[DATABASE] Applied migration %s (%s)", m.FileName, m.Description)
	}
	return nil
}

// AppliedMigrations returns the file names recorded in schema_migrations, oldest first
func (db *Database) AppliedMigrations() ([]string, error) {
	rows, err := db.mainDB.Query(`SELECT filename FROM schema_migrations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (db *Database) appliedSet() (map[string]bool, error) {
	names, err := db.AppliedMigrations()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

func (db *Database) applyMigration(ctx context.Context, m *MigrationFile) error {
	stmts, err := migrationSQL(m)
	if err != nil {
		return err
	}
	return retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmts); err != nil {
			return fmt.Errorf("migration %s: %w", m.FileName, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES (?)`, m.FileName); err != nil {
			return fmt.Errorf("record migration %s: %w", m.FileName, err)
		}
		return nil
	})
}

// parseMigrationFileName splits NNNN_main_description.sql
func parseMigrationFileName(fileName string) (*MigrationFile, error) {
	name, ok := strings.CutSuffix(fileName, ".sql")
	if !ok {
		return nil, fmt.Errorf("migration file must have .sql extension: %s", fileName)
	}
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid migration file name %s (expected 0001_main_description.sql)", fileName)
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid version number in migration file: %s", fileName)
	}
	if parts[1] != migrationPrefix {
		return nil, fmt.Errorf("unknown migration type in %s: %s", fileName, parts[1])
	}
	return &MigrationFile{
		FileName:    fileName,
		Version:     version,
		Description: parts[2],
		FilePath:    path.Join("migrations", fileName),
	}, nil
}
