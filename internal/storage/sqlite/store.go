// Package sqlite provides SQLite-backed persistence for debate sessions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/openpodium/podium/internal/debate/domain"
	sqlitemigrate "github.com/openpodium/podium/internal/platform/storage/sqlitemigrate"
	"github.com/openpodium/podium/internal/storage"
	"github.com/openpodium/podium/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed session persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at the provided path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func encodeJSON(value any) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal record field: %w", err)
	}
	return string(encoded), nil
}

// PutSession inserts or replaces a session by ID.
func (s *Store) PutSession(ctx context.Context, session domain.Session) error {
	speakers, err := encodeJSON(session.Speakers)
	if err != nil {
		return err
	}

	motionContext := ""
	if session.MotionContext != nil {
		motionContext, err = encodeJSON(session.MotionContext)
		if err != nil {
			return err
		}
	}

	rankings := ""
	if session.FinalRankings != nil {
		rankings, err = encodeJSON(session.FinalRankings)
		if err != nil {
			return err
		}
	}

	adjudicating := 0
	if session.Adjudicating {
		adjudicating = 1
	}
	prepRunning := 0
	if session.PrepTimerRunning {
		prepRunning = 1
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (id, title, created_at, motion, motion_context, phase, prep_seconds_left, prep_running, adjudicating, speakers, final_rankings, adjudication)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    motion = excluded.motion,
    motion_context = excluded.motion_context,
    phase = excluded.phase,
    prep_seconds_left = excluded.prep_seconds_left,
    prep_running = excluded.prep_running,
    adjudicating = excluded.adjudicating,
    speakers = excluded.speakers,
    final_rankings = excluded.final_rankings,
    adjudication = excluded.adjudication
`,
		session.ID,
		session.Title,
		toMillis(session.CreatedAt),
		session.Motion,
		motionContext,
		string(session.Phase),
		session.PrepSecondsLeft,
		prepRunning,
		adjudicating,
		speakers,
		rankings,
		session.Adjudication,
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given ID or storage.ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, title, created_at, motion, motion_context, phase, prep_seconds_left, prep_running, adjudicating, speakers, final_rankings, adjudication
FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return domain.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions ordered by creation time, then ID.
func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, title, created_at, motion, motion_context, phase, prep_seconds_left, prep_running, adjudicating, speakers, final_rankings, adjudication
FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes the session with the given ID.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		session       domain.Session
		createdAt     int64
		motionContext string
		phase         string
		prepRunning   int
		adjudicating  int
		speakers      string
		rankings      string
	)
	err := row.Scan(
		&session.ID,
		&session.Title,
		&createdAt,
		&session.Motion,
		&motionContext,
		&phase,
		&session.PrepSecondsLeft,
		&prepRunning,
		&adjudicating,
		&speakers,
		&rankings,
		&session.Adjudication,
	)
	if err != nil {
		return domain.Session{}, err
	}

	session.CreatedAt = fromMillis(createdAt)
	session.Phase = domain.Phase(phase)
	session.PrepTimerRunning = prepRunning != 0
	session.Adjudicating = adjudicating != 0

	if err := json.Unmarshal([]byte(speakers), &session.Speakers); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal speakers: %w", err)
	}
	if motionContext != "" {
		var mc domain.MotionContext
		if err := json.Unmarshal([]byte(motionContext), &mc); err != nil {
			return domain.Session{}, fmt.Errorf("unmarshal motion context: %w", err)
		}
		session.MotionContext = &mc
	}
	if rankings != "" {
		if err := json.Unmarshal([]byte(rankings), &session.FinalRankings); err != nil {
			return domain.Session{}, fmt.Errorf("unmarshal rankings: %w", err)
		}
	}
	return session, nil
}
