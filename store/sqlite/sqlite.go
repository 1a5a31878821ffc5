// Package sqlite persists completed generation sessions and their file sets.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codestream-dev/codestream/model"
)

// Store archives generation sessions in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			prompt     TEXT NOT NULL,
			mode       TEXT NOT NULL DEFAULT 'quick',
			status     TEXT NOT NULL DEFAULT 'streaming',
			error      TEXT NOT NULL DEFAULT '',
			answer     TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS session_files (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			path       TEXT NOT NULL,
			content    TEXT NOT NULL,
			status     TEXT NOT NULL,
			language   TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_files_session_id
			ON session_files(session_id);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_files_session_path
			ON session_files(session_id, path);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession upserts a terminal session with its final file set. Re-saving
// the same session replaces its files.
func (s *Store) SaveSession(sess *model.GenerationSession, files []*model.FileRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(
		`INSERT INTO sessions (id, prompt, mode, status, error, answer, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, error = excluded.error,
			answer = excluded.answer, updated_at = excluded.updated_at`,
		sess.ID, sess.Prompt, sess.Mode, sess.Status, sess.Error, sess.Answer,
		sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM session_files WHERE session_id = ?`, sess.ID); err != nil {
		return err
	}
	for _, f := range files {
		_, err := tx.Exec(
			`INSERT INTO session_files (session_id, path, content, status, language)
			 VALUES (?, ?, ?, ?, ?)`,
			sess.ID, f.Path, f.Content, f.Status, f.Language,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (*model.GenerationSession, error) {
	row := s.db.QueryRow(
		`SELECT id, prompt, mode, status, error, answer, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	)
	return scanSession(row)
}

// GetFiles returns the archived file set for a session, ordered by path.
func (s *Store) GetFiles(sessionID string) ([]*model.FileRecord, error) {
	rows, err := s.db.Query(
		`SELECT path, content, status, language
		 FROM session_files
		 WHERE session_id = ?
		 ORDER BY path ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*model.FileRecord
	for rows.Next() {
		f := &model.FileRecord{}
		if err := rows.Scan(&f.Path, &f.Content, &f.Status, &f.Language); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListSessions returns all sessions ordered by creation time (newest first).
func (s *Store) ListSessions() ([]*model.GenerationSession, error) {
	rows, err := s.db.Query(
		`SELECT id, prompt, mode, status, error, answer, created_at, updated_at
		 FROM sessions ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.GenerationSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*model.GenerationSession, error) {
	sess := &model.GenerationSession{}
	err := row.Scan(
		&sess.ID, &sess.Prompt, &sess.Mode, &sess.Status,
		&sess.Error, &sess.Answer, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
