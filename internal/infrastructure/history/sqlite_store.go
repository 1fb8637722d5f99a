// Package history persists finished turns in a SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvaldes/tars-go/internal/domain"
	"github.com/dvaldes/tars-go/internal/ports"
)

// SQLiteStore implements the HistoryRepository port.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore creates (or opens) the turn database at path
// (default ~/.tars/history/turns.db).
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	// timestamp is epoch nanoseconds so ORDER BY compares numerically.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		timestamp INTEGER,
		user_text TEXT,
		final_text TEXT,
		intent TEXT,
		command TEXT,
		exit_code INTEGER,
		processing_ms INTEGER,
		tts_ms INTEGER,
		total_ms INTEGER
	);`)
	return err
}

// Save implements ports.HistoryRepository.
func (s *SQLiteStore) Save(record domain.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO turns
		 (id, timestamp, user_text, final_text, intent, command, exit_code, processing_ms, tts_ms, total_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Timestamp.UTC().UnixNano(),
		record.UserText,
		record.FinalText,
		string(record.Intent),
		record.Command,
		record.ExitCode,
		record.ProcessingMS,
		record.TTSMS,
		record.TotalMS,
	)
	return err
}

// Recent implements ports.HistoryRepository, newest first.
func (s *SQLiteStore) Recent(limit int) ([]domain.TurnRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, timestamp, user_text, final_text, intent, command, exit_code, processing_ms, tts_ms, total_ms
		 FROM turns ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TurnRecord
	for rows.Next() {
		var r domain.TurnRecord
		var ts int64
		var intent string
		if err := rows.Scan(&r.ID, &ts, &r.UserText, &r.FinalText, &intent, &r.Command,
			&r.ExitCode, &r.ProcessingMS, &r.TTSMS, &r.TotalMS); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		r.Intent = domain.Intent(intent)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func expandPath(path string) string {
	if path == "" {
		return filepath.Join(userHomeDir(), ".tars", "history", "turns.db")
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(userHomeDir(), path[2:])
	}
	return path
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
