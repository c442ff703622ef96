// Package storage provides the SQLite-backed cache for enrichment outcomes.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store persists enrichment cache entries keyed by content hash.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the cache database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS enrichment_cache (
		cache_key  TEXT PRIMARY KEY,
		stage      TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_enrichment_cache_stage ON enrichment_cache(stage);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create enrichment_cache table: %w", err)
	}
	return nil
}

// Get returns the cached payload for key, or nil when the key is absent.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	err := s.db.QueryRow(
		"SELECT payload FROM enrichment_cache WHERE cache_key = ?", key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return payload, nil
}

// Set stores or replaces the payload for key.
func (s *Store) Set(key, stage string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO enrichment_cache (cache_key, stage, payload) VALUES (?, ?, ?)",
		key, stage, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
