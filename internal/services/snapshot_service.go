package services

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/storage"
	"github.com/rs/zerolog/log"
)

const snapshotPrefix = "snapshot-"

// Snapshot describes one point-in-time copy of the whole registry.
type Snapshot struct {
	Name      string    `json:"name"`
	Objects   int       `json:"objects,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotServiceProvider defines the interface for snapshot services.
type SnapshotServiceProvider interface {
	CreateSnapshot() (Snapshot, error)
	ListSnapshots() ([]Snapshot, error)
	Load(name string) ([]models.Entity, error)
}

// SnapshotService copies every stored entity into a JSON document laid out
// like the file backend's, whichever backend is active.
type SnapshotService struct {
	store storage.Storage
	dir   string
}

// NewSnapshotService creates a new SnapshotService writing into dir.
func NewSnapshotService(store storage.Storage, dir string) *SnapshotService {
	return &SnapshotService{store: store, dir: dir}
}

// CreateSnapshot writes the current registry to a new file in the snapshot
// directory.
func (s *SnapshotService) CreateSnapshot() (Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("could not create snapshot directory: %w", err)
	}
	store, end := storage.Begin(s.store)
	defer end()
	all, err := store.All("")
	if err != nil {
		return Snapshot{}, err
	}

	now := time.Now().UTC()
	name := snapshotPrefix + now.Format("20060102T150405.000000") + ".json"
	out := storage.NewFileStorage(filepath.Join(s.dir, name))
	for _, e := range all {
		if err := out.New(e); err != nil {
			return Snapshot{}, err
		}
	}
	if err := out.Save(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Name: name, Objects: len(all), CreatedAt: now}
	if info, err := os.Stat(out.Path()); err == nil {
		snap.Size = info.Size()
	}
	log.Info().Str("snapshot", name).Int("objects", snap.Objects).Msg("Snapshot created")
	return snap, nil
}

// ListSnapshots returns the snapshots in the directory, newest first.
func (s *SnapshotService) ListSnapshots() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, Snapshot{Name: name, Size: info.Size(), CreatedAt: info.ModTime().UTC()})
	}
	slices.SortFunc(snaps, func(a, b Snapshot) int { return strings.Compare(b.Name, a.Name) })
	return snaps, nil
}

// Load reads a snapshot back, without touching the active storage.
func (s *SnapshotService) Load(name string) ([]models.Entity, error) {
	if filepath.Base(name) != name || !strings.HasPrefix(name, snapshotPrefix) {
		return nil, fmt.Errorf("snapshot %q: %w", name, storage.ErrNotFound)
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("snapshot %q: %w", name, storage.ErrNotFound)
	}
	fs := storage.NewFileStorage(path)
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	all, err := fs.All("")
	if err != nil {
		return nil, err
	}
	return sorted(all), nil
}
