/*
Package storage implements the persistent run store.

This package provides SQLite-based storage for pipeline runs, the suits each
run produced, and cached interpretation responses. It degrades gracefully: if
the database cannot be opened, storage is disabled and every operation turns
into a no-op instead of failing the run.

The database defaults to ~/.history-suits/runs.db and uses modernc.org/sqlite
(a pure Go, CGo-free implementation).
*/
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Storage defines the interface for persistent storage operations.
type Storage interface {
	// Init initializes the database and runs migrations.
	Init() error

	// RecordRun stores a run summary together with its suits.
	RecordRun(run RunRecord, suits []SuitRecord) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]RunRecord, error)

	// GetRunSuits returns the suits recorded for a run.
	GetRunSuits(runID string) ([]SuitRecord, error)

	// GetInterpretation returns a cached interpretation payload.
	GetInterpretation(key string) ([]byte, bool, error)

	// SaveInterpretation caches an interpretation payload.
	SaveInterpretation(key, model string, payload []byte) error

	// Cleanup removes old records based on retention policy.
	Cleanup(retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	logger   *zap.Logger
	mu       sync.Mutex
	initOnce sync.Once
}

// DefaultPath returns ~/.history-suits/runs.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".history-suits", "runs.db"), nil
}

// NewStorage creates a new SQLite storage instance at path.
//
// An empty path selects DefaultPath. If no usable path can be determined the
// storage is created disabled and operations will not fail.
func NewStorage(path string, logger *zap.Logger) *SQLiteStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			logger.Warn("storage disabled", zap.Error(err))
			return &SQLiteStorage{enabled: false, logger: logger}
		}
		path = p
	}

	return &SQLiteStorage{
		dbPath:  path,
		enabled: true,
		logger:  logger,
	}
}

// Disabled returns a storage whose operations are all no-ops.
func Disabled() *SQLiteStorage {
	return &SQLiteStorage{enabled: false, logger: zap.NewNop()}
}

// Enabled reports whether the storage is active.
func (s *SQLiteStorage) Enabled() bool {
	return s.enabled && s.db != nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	var initErr error
	s.initOnce.Do(func() {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			s.logger.Warn("storage disabled", zap.Error(initErr))
			return
		}
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			s.logger.Warn("storage disabled", zap.Error(initErr))
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			s.logger.Warn("storage disabled", zap.Error(initErr))
			return
		}
	})

	return initErr
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// HashKey returns the hex SHA-256 of data, used for cache keys.
func HashKey(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
