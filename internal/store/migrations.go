package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per recorded session file
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK(status IN ('recording', 'complete', 'failed')),
			row_count INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Replays table - one row per playback of a session file
		`CREATE TABLE IF NOT EXISTS replays (
			id TEXT PRIMARY KEY,
			session_id TEXT REFERENCES sessions(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			sent INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_replays_session_id ON replays(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_replays_path ON replays(path)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
