package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a recorded session.
type SessionStatus string

const (
	SessionRecording SessionStatus = "recording"
	SessionComplete  SessionStatus = "complete"
	SessionFailed    SessionStatus = "failed"
)

// Session is the catalog entry of one session file.
type Session struct {
	ID        string        `json:"id"`
	Path      string        `json:"path"`
	Address   string        `json:"address"`
	Status    SessionStatus `json:"status"`
	Rows      int           `json:"rows"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// SessionRepository provides access to the sessions table.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, path, address, status, row_count, error, started_at, ended_at`

// Create inserts a session in the recording state. An empty ID is filled
// with a new UUID.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	sess.Status = SessionRecording

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, path, address, status, row_count, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Path, sess.Address, string(sess.Status), sess.Rows, sess.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Finish marks a session complete with its final row count.
func (r *SessionRepository) Finish(id string, rows int) error {
	return r.end(id, SessionComplete, rows, "")
}

// Fail marks a session failed, keeping the rows written so far.
func (r *SessionRepository) Fail(id string, rows int, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.end(id, SessionFailed, rows, msg)
}

func (r *SessionRepository) end(id string, status SessionStatus, rows int, msg string) error {
	res, err := r.db.Exec(
		`UPDATE sessions SET status = ?, row_count = ?, error = ?, ended_at = ? WHERE id = ?`,
		string(status), rows, msg, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

// GetByPath retrieves the session recorded to path.
func (r *SessionRepository) GetByPath(path string) (*Session, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE path = ?`, path))
}

// List returns all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) scanOne(row *sql.Row) (*Session, error) {
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*Session, error) {
	sess := &Session{}
	var status string
	var ended sql.NullTime

	err := sc.Scan(&sess.ID, &sess.Path, &sess.Address, &status, &sess.Rows, &sess.Error, &sess.StartedAt, &ended)
	if err != nil {
		return nil, err
	}

	sess.Status = SessionStatus(status)
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
