package intervention

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists suppression state across sessions and devices of
// the same user. Update runs inside a single write transaction, so
// concurrent mutation from two open tabs resolves to an atomic
// read-modify-write per response instead of an in-memory merge.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (and initializes) the suppression database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; serializing connections avoids busy
	// errors under concurrent sessions.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS suppression_state (
		user_id          TEXT NOT NULL,
		mr_id            TEXT NOT NULL,
		dismissals       INTEGER NOT NULL DEFAULT 0,
		last_dismissed_at INTEGER NOT NULL DEFAULT 0,
		acted_count      INTEGER NOT NULL DEFAULT 0,
		exposure_ms      INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL DEFAULT 0,
		suppressed_until INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, mr_id)
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create suppression table: %w", err)
	}
	return nil
}

// Get returns the stored state for (userID, mrID).
func (s *SQLiteStore) Get(userID, mrID string) (State, bool, error) {
	row := s.db.QueryRow(`
		SELECT dismissals, last_dismissed_at, acted_count, exposure_ms, created_at, suppressed_until
		FROM suppression_state WHERE user_id = ? AND mr_id = ?`, userID, mrID)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to load suppression state: %w", err)
	}
	return st, true, nil
}

// Update applies fn under a write transaction.
func (s *SQLiteStore) Update(userID, mrID string, fn func(State) State) (State, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return State{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT dismissals, last_dismissed_at, acted_count, exposure_ms, created_at, suppressed_until
		FROM suppression_state WHERE user_id = ? AND mr_id = ?`, userID, mrID)
	st, err := scanState(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("failed to load suppression state: %w", err)
	}

	st = fn(st)

	_, err = tx.Exec(`
		INSERT INTO suppression_state
			(user_id, mr_id, dismissals, last_dismissed_at, acted_count, exposure_ms, created_at, suppressed_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, mr_id) DO UPDATE SET
			dismissals = excluded.dismissals,
			last_dismissed_at = excluded.last_dismissed_at,
			acted_count = excluded.acted_count,
			exposure_ms = excluded.exposure_ms,
			created_at = excluded.created_at,
			suppressed_until = excluded.suppressed_until`,
		userID, mrID,
		st.Dismissals, unixMillis(st.LastDismissedAt), st.ActedCount,
		st.ExposureTotal.Milliseconds(), unixMillis(st.CreatedAt), unixMillis(st.SuppressedUntil))
	if err != nil {
		return State{}, fmt.Errorf("failed to store suppression state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return State{}, fmt.Errorf("failed to commit suppression state: %w", err)
	}
	return st, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (State, error) {
	var st State
	var lastDismissed, exposureMS, createdAt, suppressedUntil int64
	err := row.Scan(&st.Dismissals, &lastDismissed, &st.ActedCount, &exposureMS, &createdAt, &suppressedUntil)
	if err != nil {
		return State{}, err
	}
	st.LastDismissedAt = fromUnixMillis(lastDismissed)
	st.ExposureTotal = time.Duration(exposureMS) * time.Millisecond
	st.CreatedAt = fromUnixMillis(createdAt)
	st.SuppressedUntil = fromUnixMillis(suppressedUntil)
	return st, nil
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
