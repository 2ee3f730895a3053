// Package store handles SQLite persistence of completed sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/switchlife/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrSessionNotFound is returned by SessionDetails for an unknown id.
var ErrSessionNotFound = errors.New("session not found")

// Fixed-width UTC timestamps keep text ordering equal to time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			duration_secs INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_keys (
			session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			key_name TEXT NOT NULL,
			presses INTEGER NOT NULL,
			chatters INTEGER NOT NULL,
			chatter_releases INTEGER NOT NULL,
			PRIMARY KEY (session_id, key_name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);`,
		`CREATE INDEX IF NOT EXISTS idx_session_keys_key_name ON session_keys(key_name);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// SaveSession stores a completed session and its per-key stats in one
// transaction and returns the new session id.
func (s *Store) SaveSession(ctx context.Context, rec model.SessionRecord, keys []model.SessionKeyStats) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (start_time, end_time, duration_secs) VALUES (?, ?, ?)`,
		formatTime(rec.StartTime),
		formatTime(rec.EndTime),
		int64(rec.DurationSecs),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(keys) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO session_keys (session_id, key_name, presses, chatters, chatter_releases)
			 VALUES (?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, ks := range keys {
			if _, err = stmt.ExecContext(ctx, id, ks.KeyName, int64(ks.Presses), int64(ks.Chatters), int64(ks.ChatterReleases)); err != nil {
				return 0, fmt.Errorf("failed to insert stats for %s: %w", ks.KeyName, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func scanSession(scan func(dest ...any) error) (model.SessionRecord, error) {
	var (
		rec          model.SessionRecord
		id, duration int64
		start, end   string
	)
	if err := scan(&id, &start, &end, &duration); err != nil {
		return rec, err
	}
	startAt, err := parseTime(start)
	if err != nil {
		return rec, err
	}
	endAt, err := parseTime(end)
	if err != nil {
		return rec, err
	}
	rec.ID = &id
	rec.StartTime = startAt
	rec.EndTime = endAt
	if duration > 0 {
		rec.DurationSecs = uint64(duration)
	}
	return rec, nil
}

// RecentSessions returns sessions newest first.
func (s *Store) RecentSessions(ctx context.Context, limit, offset int) ([]model.SessionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, duration_secs
		FROM sessions
		ORDER BY start_time DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CountSessions returns the number of stored sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SessionDetails returns one session and its per-key stats ordered by key.
func (s *Store) SessionDetails(ctx context.Context, id int64) (model.SessionRecord, []model.SessionKeyStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, duration_secs FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionRecord{}, nil, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	if err != nil {
		return model.SessionRecord{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, key_name, presses, chatters, chatter_releases
		FROM session_keys
		WHERE session_id = ?`, id)
	if err != nil {
		return model.SessionRecord{}, nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var keys []model.SessionKeyStats
	for rows.Next() {
		var ks model.SessionKeyStats
		if err := rows.Scan(&ks.SessionID, &ks.KeyName, &ks.Presses, &ks.Chatters, &ks.ChatterReleases); err != nil {
			return model.SessionRecord{}, nil, err
		}
		keys = append(keys, ks)
	}
	if err := rows.Err(); err != nil {
		return model.SessionRecord{}, nil, err
	}
	sortKeyStats(keys)
	return rec, keys, nil
}

// KeyTotals sums per-key stats over the most recent window sessions.
func (s *Store) KeyTotals(ctx context.Context, window int) ([]model.KeyAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent AS (
		SELECT id FROM sessions
		ORDER BY start_time DESC, id DESC
		LIMIT ?
	)
	SELECT k.key_name, COUNT(*) AS sessions, SUM(k.presses) AS presses,
		SUM(k.chatters) AS chatters, SUM(k.chatter_releases) AS chatter_releases
	FROM session_keys k
	JOIN recent r ON r.id = k.session_id
	GROUP BY k.key_name`

	rows, err := s.db.QueryContext(ctx, query, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.KeyAggregate
	for rows.Next() {
		var agg model.KeyAggregate
		if err := rows.Scan(&agg.KeyName, &agg.Sessions, &agg.Presses, &agg.Chatters, &agg.ChatterReleases); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortAggregates(result)
	return result, nil
}

// ChatterTrend returns the stats of key in each of the most recent window
// sessions, oldest first. Sessions without a row for key report zeros.
func (s *Store) ChatterTrend(ctx context.Context, key string, window int) ([]model.SessionKeyStats, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent AS (
		SELECT id, start_time FROM sessions
		ORDER BY start_time DESC, id DESC
		LIMIT ?
	)
	SELECT r.id, COALESCE(k.presses, 0), COALESCE(k.chatters, 0), COALESCE(k.chatter_releases, 0)
	FROM recent r
	LEFT JOIN session_keys k ON k.session_id = r.id AND k.key_name = ?
	ORDER BY r.start_time ASC, r.id ASC`

	rows, err := s.db.QueryContext(ctx, query, window, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SessionKeyStats
	for rows.Next() {
		ks := model.SessionKeyStats{KeyName: key}
		if err := rows.Scan(&ks.SessionID, &ks.Presses, &ks.Chatters, &ks.ChatterReleases); err != nil {
			return nil, err
		}
		result = append(result, ks)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
