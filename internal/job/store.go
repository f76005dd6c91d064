package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/video-stream/autosub/internal/storage"
)

// Store persists one JSON status file per job in a directory. Each job only
// touches its own file, so no locking is needed across jobs.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding status files.
func (s *Store) Dir() string {
	return s.dir
}

// Save atomically writes the status record for id.
func (s *Store) Save(id string, rec Record) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := storage.WriteFileAtomic(s.path(id), data, 0o644); err != nil {
		return fmt.Errorf("save status %s: %w", id, err)
	}
	return nil
}

// Raw returns the stored status file for id verbatim. found is false when the
// job has no record yet.
func (s *Store) Raw(id string) (data []byte, found bool, err error) {
	if err := ValidateID(id); err != nil {
		return nil, false, err
	}
	data, err = os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read status %s: %w", id, err)
	}
	return data, true, nil
}

// Get returns the decoded status record for id.
func (s *Store) Get(id string) (Record, bool, error) {
	data, found, err := s.Raw(id)
	if err != nil || !found {
		return Record{}, found, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, true, fmt.Errorf("decode status %s: %w", id, err)
	}
	return rec, true, nil
}

// Entry is a status record with its job id and write time.
type Entry struct {
	ID        string
	Record    Record
	UpdatedAt time.Time
}

// List returns every readable status record, newest first.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		rec, found, err := s.Get(id)
		if err != nil || !found {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{ID: id, Record: rec, UpdatedAt: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, StatusName(id))
}
