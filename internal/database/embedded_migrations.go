package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"sync"
)

//go:embed migrations/*.sql
var EmbeddedMigrationsFS embed.FS

// embeddedMigrations parses the migrations directory once per process, sorted by version.
// Badly named files are skipped with a warning.
var embeddedMigrations = sync.OnceValues(func() ([]*MigrationFile, error) {
	entries, err := fs.ReadDir(EmbeddedMigrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations directory: %w", err)
	}

	var migrations []*MigrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m, err := parseMigrationFileName(e.Name())
		if err != nil {
			log.Printf("[DATABASE] Warning: skipping migration %s: %v", e.Name(), err)
			continue
		}
		migrations = append(migrations, m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
})

// migrationSQL returns the statements of an embedded migration
func migrationSQL(m *MigrationFile) (string, error) {
	content, err := fs.ReadFile(EmbeddedMigrationsFS, m.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read migration %s: %w", m.FilePath, err)
	}
	return string(content), nil
}
