// Package cache remembers finished transcripts by media content so that a
// re-uploaded file does not pay for a second remote transcription.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/video-stream/autosub/internal/transcript"
)

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &DB{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate transcript cache: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		hash TEXT PRIMARY KEY,
		transcript_id TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

// Get returns the cached transcript for hash. found is false on a miss.
func (d *DB) Get(hash string) (result *transcript.Result, found bool, err error) {
	var payload string
	err = d.db.QueryRow("SELECT payload FROM transcripts WHERE hash = ?", hash).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r transcript.Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, false, fmt.Errorf("decode cached transcript: %w", err)
	}
	return &r, true, nil
}

// Put stores result under hash, replacing any previous entry.
func (d *DB) Put(hash string, result *transcript.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`
		INSERT INTO transcripts (hash, transcript_id, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET transcript_id = ?, payload = ?, created_at = ?`,
		hash, result.ID, string(payload), time.Now(),
		result.ID, string(payload), time.Now(),
	)
	return err
}

// Count returns the number of cached transcripts.
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&n)
	return n, err
}

func (d *DB) Close() error {
	return d.db.Close()
}
