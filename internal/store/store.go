// Package store keeps the cycle history in SQLite.
package store

import (
	"database/sql"
	"sync"
	"time"

	"github.com/go-faster/errors"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Entry is one applied fetch cycle.
type Entry struct {
	ID          string
	Generation  uint64
	Query       string
	Chaos       bool
	Outcome     string // "success" or the failure kind
	Status      int    // HTTP status for HttpError, else 0
	Message     string
	Products    int
	Latency     time.Duration
	HasLatency  bool
	StartedAt   time.Time
	CompletedAt time.Time
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = MemoryPath
	}
	memory := dbPath == MemoryPath

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// Each connection to :memory: is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if !memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enable WAL mode")
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create tables")
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		generation INTEGER NOT NULL,
		query TEXT NOT NULL,
		chaos INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		message TEXT,
		products INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_completed ON cycles(completed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_cycles_outcome ON cycles(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveCycle inserts e. Saving the same ID twice is a no-op.
func (s *Store) SaveCycle(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latency sql.NullInt64
	if e.HasLatency {
		latency = sql.NullInt64{Int64: e.Latency.Milliseconds(), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO cycles (
			id, generation, query, chaos, outcome, status, message,
			products, latency_ms, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, int64(e.Generation), e.Query, boolToInt(e.Chaos), e.Outcome, e.Status, e.Message,
		e.Products, latency, e.StartedAt.UTC(), e.CompletedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "insert cycle")
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, generation, query, chaos, outcome, status, message,
		       products, latency_ms, started_at, completed_at
		FROM cycles
		ORDER BY completed_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query cycles")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			gen      int64
			chaosInt int
			message  sql.NullString
			latency  sql.NullInt64
		)
		err := rows.Scan(
			&e.ID,
			&gen,
			&e.Query,
			&chaosInt,
			&e.Outcome,
			&e.Status,
			&message,
			&e.Products,
			&latency,
			&e.StartedAt,
			&e.CompletedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan cycle")
		}
		e.Generation = uint64(gen)
		e.Chaos = chaosInt != 0
		e.Message = message.String
		if latency.Valid {
			e.Latency = time.Duration(latency.Int64) * time.Millisecond
			e.HasLatency = true
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate cycles")
	}
	return entries, nil
}

// CountByOutcome returns the number of stored cycles per outcome label.
func (s *Store) CountByOutcome() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT outcome, COUNT(*) FROM cycles GROUP BY outcome`)
	if err != nil {
		return nil, errors.Wrap(err, "count cycles")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, errors.Wrap(err, "scan count")
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// Prune deletes all but the newest keep entries and returns how many were removed.
func (s *Store) Prune(keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM cycles WHERE id NOT IN (
			SELECT id FROM cycles ORDER BY completed_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, errors.Wrap(err, "prune cycles")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
