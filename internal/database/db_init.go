package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
)

// MainDBFile is the sqlite file name inside DataDir
const MainDBFile = "klkchan.sq3"

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate entry")
)

// Database wraps the main sqlite connection
type Database struct {
	mainDB *sql.DB

	// Database configuration
	dbconfig *DBConfig

	WG       *sync.WaitGroup
	StopChan chan struct{} // Channel to signal shutdown
	stopOnce sync.Once
}

// DBConfig represents database configuration
type DBConfig struct {
	// Directory to store database files
	DataDir string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Performance settings
	WALMode   bool   // Write-Ahead Logging
	SyncMode  string // OFF, NORMAL, FULL
	CacheSize int    // KB
	TempStore string // MEMORY, FILE
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() (dbconfig *DBConfig) {
	return &DBConfig{
		DataDir:         "./data",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 0, // Unlimited for SQLite - connections don't need to be recycled
		WALMode:         true,
		SyncMode:        "NORMAL",
		CacheSize:       -16384, // -16384 == 1024 KB * 16384 = 16MB cache
		TempStore:       "MEMORY",
	}
}

// OpenDatabase opens <DataDir>/klkchan.sq3 and applies pending migrations
func OpenDatabase(dbconfig *DBConfig) (*Database, error) {
	if dbconfig == nil {
		dbconfig = DefaultDBConfig()
	}

	db := &Database{
		dbconfig: dbconfig,
		WG:       &sync.WaitGroup{}, // Initialize wait group for background tasks
		StopChan: make(chan struct{}),
	}

	// Initialize main database
	if err := db.initMainDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize main database: %w", err)
	}

	// Run migrations to ensure all tables exist
	if err := db.Migrate(); err != nil {
		db.mainDB.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	log.Printf("[DATABASE] initialized at '%s'", filepath.Join(dbconfig.DataDir, MainDBFile))
	return db, nil
}

// GetMainDB returns the raw connection, used by tools and tests
func (db *Database) GetMainDB() *sql.DB {
	return db.mainDB
}

// IsDBshutdown reports whether Shutdown was called
func (db *Database) IsDBshutdown() bool {
	if db == nil {
		return true // If db is nil, consider it shutdown
	}
	select {
	case <-db.StopChan:
		return true
	default:
		return false
	}
}

// Shutdown stops background tasks and closes the connection
func (db *Database) Shutdown() error {
	db.stopOnce.Do(func() { close(db.StopChan) })
	db.WG.Wait()
	if db.mainDB == nil {
		return nil
	}
	if _, err := db.mainDB.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("[DATABASE] wal checkpoint failed: %v", err)
	}
	return db.mainDB.Close()
}

// Backup writes a consistent copy of the main database into dir and returns its path
func (db *Database) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	target := filepath.Join(dir, fmt.Sprintf("klkchan-%s.sq3", now().Format("20060102-150405")))
	if _, err := db.mainDB.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}
	return target, nil
}

// initMainDB initializes the main database connection
func (db *Database) initMainDB() error {
	dbPath := filepath.Join(db.dbconfig.DataDir, MainDBFile)

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(db.dbconfig.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// foreign_keys and busy_timeout are per connection, set them in the DSN for the whole pool
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=30000", dbPath)

	// Open main database
	mainDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open main database: %w", err)
	}

	// Configure connection pool
	mainDB.SetMaxOpenConns(db.dbconfig.MaxOpenConns)
	mainDB.SetMaxIdleConns(db.dbconfig.MaxIdleConns)
	mainDB.SetConnMaxLifetime(db.dbconfig.ConnMaxLifetime)

	// Test connection
	if err := mainDB.Ping(); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to ping main database: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to ping main database: %w", err)
	}

	// Apply SQLite pragmas for performance
	if err := db.applySQLitePragmas(mainDB); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to apply SQLite pragmas: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to apply SQLite pragmas: %w", err)
	}

	db.mainDB = mainDB
	return nil
}

// applySQLitePragmas applies performance and configuration pragmas to SQLite connection
func (db *Database) applySQLitePragmas(conn *sql.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = %d", db.dbconfig.CacheSize),
		fmt.Sprintf("PRAGMA synchronous = %s", db.dbconfig.SyncMode),
		fmt.Sprintf("PRAGMA temp_store = %s", db.dbconfig.TempStore),
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 30000", // 30 seconds
	}

	if db.dbconfig.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
		pragmas = append(pragmas, "PRAGMA wal_autocheckpoint = 1000")
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma '%s': %w", pragma, err)
		}
	}

	return nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// notFound maps sql.ErrNoRows to ErrNotFound
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// now returns the current time in UTC, all stored timestamps use it
func now() time.Time {
	return time.Now().UTC()
}
