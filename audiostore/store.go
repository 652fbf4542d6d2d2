// Package audiostore persists recorded audio blobs keyed by the
// timestamp of their owning history item. Audio is too large for the
// lightweight history file, so it lives in its own SQLite database.
//
// All operations are fail-open: storage failures are logged and
// swallowed, a missing blob reads as nil. Audio persistence must never
// block the transcription flow.
package audiostore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fluxvoice/log"

	_ "modernc.org/sqlite"
)

const dbFile = "fluxvoice_audio_db.sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS audio_blobs (
	timestamp  INTEGER PRIMARY KEY,
	audio_data BLOB NOT NULL
);
`

// Store is a durable byte-array store keyed by timestamp.
// Initialization is lazy: the first operation opens the database and
// concurrent callers share the same result.
type Store struct {
	dir string

	initOnce sync.Once
	db       *sql.DB
	initErr  error
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) ensure() error {
	s.initOnce.Do(func() {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			s.initErr = fmt.Errorf("create data dir: %w", err)
			return
		}
		path := filepath.Join(s.dir, dbFile)
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			s.initErr = fmt.Errorf("open sqlite: %w", err)
			return
		}
		if err := db.Ping(); err != nil {
			db.Close()
			s.initErr = fmt.Errorf("ping sqlite: %w", err)
			return
		}
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			s.initErr = fmt.Errorf("create schema: %w", err)
			return
		}
		s.db = db
	})
	return s.initErr
}

// Save upserts audio bytes under key. Best-effort.
func (s *Store) Save(ctx context.Context, key int64, data []byte) {
	if err := s.ensure(); err != nil {
		log.Warnf("audiostore save %d: %v", key, err)
		return
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audio_blobs (timestamp, audio_data) VALUES (?, ?)
		ON CONFLICT(timestamp) DO UPDATE SET audio_data = excluded.audio_data
	`, key, data)
	if err != nil {
		log.Warnf("audiostore save %d: %v", key, err)
	}
}

// Get returns the stored bytes, or nil both when absent and on read
// failure.
func (s *Store) Get(ctx context.Context, key int64) []byte {
	if err := s.ensure(); err != nil {
		log.Warnf("audiostore get %d: %v", key, err)
		return nil
	}
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT audio_data FROM audio_blobs WHERE timestamp = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		log.Warnf("audiostore get %d: %v", key, err)
		return nil
	}
	return data
}

// Delete removes one blob. Best-effort.
func (s *Store) Delete(ctx context.Context, key int64) {
	if err := s.ensure(); err != nil {
		log.Warnf("audiostore delete %d: %v", key, err)
		return
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM audio_blobs WHERE timestamp = ?`, key); err != nil {
		log.Warnf("audiostore delete %d: %v", key, err)
	}
}

// Clear removes all blobs. Best-effort.
func (s *Store) Clear(ctx context.Context) {
	if err := s.ensure(); err != nil {
		log.Warnf("audiostore clear: %v", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM audio_blobs`); err != nil {
		log.Warnf("audiostore clear: %v", err)
	}
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
