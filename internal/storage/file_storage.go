package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/rs/zerolog/log"
)

// FileStorage keeps every entity in memory and persists the whole registry
// as a single JSON document.
type FileStorage struct {
	path string

	mu      sync.RWMutex
	objects map[string]models.Entity
}

// NewFileStorage creates an empty FileStorage backed by path. Call Reload to
// load the existing document.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path:    path,
		objects: make(map[string]models.Entity),
	}
}

// Path returns the backing file.
func (s *FileStorage) Path() string { return s.path }

func (s *FileStorage) All(kind models.Kind) (map[string]models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Entity)
	for key, e := range s.objects {
		if kind == "" || e.Kind() == kind {
			out[key] = e
		}
	}
	return out, nil
}

func (s *FileStorage) New(e models.Entity) error {
	if e == nil {
		return nil
	}
	s.mu.Lock()
	s.objects[models.Key(e)] = e
	s.mu.Unlock()
	return nil
}

// Save encodes the full registry before touching the disk, then replaces the
// file in one rename.
func (s *FileStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := make(map[string]map[string]any, len(s.objects))
	for key, e := range s.objects {
		doc[key] = models.ToMap(e)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return &PersistenceError{Op: "write", Err: err}
	}
	log.Debug().Str("path", s.path).Int("objects", len(doc)).Msg("FileStorage: saved")
	return nil
}

func (s *FileStorage) Delete(e models.Entity) error {
	if e == nil {
		return nil
	}
	s.mu.Lock()
	delete(s.objects, models.Key(e))
	s.mu.Unlock()
	return nil
}

func (s *FileStorage) Get(kind models.Kind, id string) (models.Entity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.objects[models.KeyOf(kind, id)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *FileStorage) Count(kind models.Kind) (int, error) {
	kinds, err := countKinds(kind)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if kind == "" {
		return len(s.objects), nil
	}
	n := 0
	for _, e := range s.objects {
		for _, k := range kinds {
			if e.Kind() == k {
				n++
			}
		}
	}
	return n, nil
}

// Reload replaces the registry with the content of the backing file. A
// missing or empty file yields an empty registry. On a decode failure the
// current registry is kept.
func (s *FileStorage) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &PersistenceError{Op: "read", Err: err}
	}

	objects := make(map[string]models.Entity)
	if len(bytes.TrimSpace(data)) > 0 {
		var doc map[string]map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return &PersistenceError{Op: "decode", Err: err}
		}
		for key, raw := range doc {
			e, err := models.FromMap(raw)
			if err != nil {
				return &PersistenceError{Op: "decode", Err: fmt.Errorf("%s: %w", key, err)}
			}
			objects[models.Key(e)] = e
		}
	}

	s.mu.Lock()
	s.objects = objects
	s.mu.Unlock()
	return nil
}

// Close re-synchronizes from disk, dropping anything not yet saved.
func (s *FileStorage) Close() error {
	return s.Reload()
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
