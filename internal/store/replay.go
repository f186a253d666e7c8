package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Replay is the catalog entry of one playback run.
type Replay struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id,omitempty"`
	Path       string     `json:"path"`
	Address    string     `json:"address"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ReplayRepository provides access to the replays table.
type ReplayRepository struct {
	db *sql.DB
}

// Replays returns the replay repository for this store.
func (s *Store) Replays() *ReplayRepository {
	return &ReplayRepository{db: s.db}
}

const replayColumns = `id, COALESCE(session_id, ''), path, address, sent, failed, error, started_at, finished_at`

// Start records the beginning of a replay. The run is linked to the
// cataloged session with the same path, if there is one.
func (r *ReplayRepository) Start(rp *Replay) error {
	if rp.ID == "" {
		rp.ID = uuid.New().String()
	}
	if rp.StartedAt.IsZero() {
		rp.StartedAt = time.Now()
	}

	if rp.SessionID == "" {
		var id string
		err := r.db.QueryRow(`SELECT id FROM sessions WHERE path = ?`, rp.Path).Scan(&id)
		if err == nil {
			rp.SessionID = id
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("look up session: %w", err)
		}
	}

	var sessionID any
	if rp.SessionID != "" {
		sessionID = rp.SessionID
	}

	_, err := r.db.Exec(
		`INSERT INTO replays (id, session_id, path, address, started_at) VALUES (?, ?, ?, ?, ?)`,
		rp.ID, sessionID, rp.Path, rp.Address, rp.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("create replay: %w", err)
	}
	return nil
}

// Finish records the outcome of a replay.
func (r *ReplayRepository) Finish(id string, sent, failed int, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	res, err := r.db.Exec(
		`UPDATE replays SET sent = ?, failed = ?, error = ?, finished_at = ? WHERE id = ?`,
		sent, failed, msg, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update replay: %w", err)
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

// ListBySession returns the replays of a session, newest first.
func (r *ReplayRepository) ListBySession(sessionID string) ([]*Replay, error) {
	return r.list(`SELECT `+replayColumns+` FROM replays WHERE session_id = ? ORDER BY started_at DESC`, sessionID)
}

// List returns every replay, newest first.
func (r *ReplayRepository) List() ([]*Replay, error) {
	return r.list(`SELECT ` + replayColumns + ` FROM replays ORDER BY started_at DESC`)
}

func (r *ReplayRepository) list(query string, args ...any) ([]*Replay, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replays []*Replay
	for rows.Next() {
		rp := &Replay{}
		var finished sql.NullTime
		if err := rows.Scan(&rp.ID, &rp.SessionID, &rp.Path, &rp.Address, &rp.Sent, &rp.Failed, &rp.Error, &rp.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			rp.FinishedAt = &t
		}
		replays = append(replays, rp)
	}
	return replays, rows.Err()
}
