package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "mudra.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "replays"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mudra.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sess := &Session{Path: "recorded_sessions/Session_20240309_140507.csv"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if _, err := s.Sessions().Get(sess.ID); err != nil {
		t.Errorf("Get() after reopen error = %v", err)
	}
}

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	older := &Session{
		Path:      "recorded_sessions/Session_20240309_130000.csv",
		Address:   "192.168.114.31",
		StartedAt: time.Date(2024, 3, 9, 13, 0, 0, 0, time.UTC),
	}
	newer := &Session{
		Path:      "recorded_sessions/Session_20240309_140000.csv",
		Address:   "192.168.114.31",
		StartedAt: time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC),
	}

	for _, sess := range []*Session{older, newer} {
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if sess.ID == "" || sess.Status != SessionRecording {
			t.Errorf("Create() left %+v", sess)
		}
	}

	t.Run("duplicate path rejected", func(t *testing.T) {
		if err := repo.Create(&Session{Path: older.Path}); err == nil {
			t.Error("expected unique constraint error")
		}
	})

	t.Run("finish and fail", func(t *testing.T) {
		if err := repo.Finish(older.ID, 42); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		if err := repo.Fail(newer.ID, 3, errors.New("disk full")); err != nil {
			t.Fatalf("Fail() error = %v", err)
		}

		got, err := repo.Get(older.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != SessionComplete || got.Rows != 42 || got.EndedAt == nil {
			t.Errorf("finished session = %+v", got)
		}

		got, err = repo.GetByPath(newer.Path)
		if err != nil {
			t.Fatalf("GetByPath() error = %v", err)
		}
		if got.Status != SessionFailed || got.Rows != 3 || got.Error != "disk full" {
			t.Errorf("failed session = %+v", got)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		list, err := repo.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
			t.Errorf("List() order wrong: %+v", list)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
		if err := repo.Finish("missing", 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("Finish() error = %v, want ErrNotFound", err)
		}
	})
}

func TestReplayRepository(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Path: "recorded_sessions/Session_20240309_140507.csv"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	linked := &Replay{Path: sess.Path, Address: "192.168.114.31"}
	if err := s.Replays().Start(linked); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if linked.SessionID != sess.ID {
		t.Errorf("replay linked to %q, want %q", linked.SessionID, sess.ID)
	}

	foreign := &Replay{Path: "/tmp/imported.csv"}
	if err := s.Replays().Start(foreign); err != nil {
		t.Fatalf("Start() for uncataloged file error = %v", err)
	}
	if foreign.SessionID != "" {
		t.Errorf("foreign replay linked to %q", foreign.SessionID)
	}

	if err := s.Replays().Finish(linked.ID, 10, 2, nil); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := s.Replays().Finish(foreign.ID, 1, 0, errors.New("line 3: malformed session row")); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := s.Replays().Finish("missing", 0, 0, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}

	runs, err := s.Replays().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListBySession() returned %d runs, want 1", len(runs))
	}
	if runs[0].Sent != 10 || runs[0].Failed != 2 || runs[0].FinishedAt == nil {
		t.Errorf("replay = %+v", runs[0])
	}

	all, err := s.Replays().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() returned %d runs, want 2", len(all))
	}
}
