// Package storage persists entities behind one interface with two
// interchangeable backends: a JSON file and a SQL database.
package storage

import (
	"errors"
	"fmt"

	"github.com/isdelr/hbnb-api/internal/config"
	"github.com/isdelr/hbnb-api/internal/models"
)

var (
	// ErrNotFound is returned by Get when no entity has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidKind is returned when a kind argument names no recognized kind.
	ErrInvalidKind = errors.New("invalid entity kind")
)

// Storage is the contract shared by every backend.
type Storage interface {
	// All returns every entity keyed by "<Kind>.<id>", restricted to kind
	// unless kind is empty. The map is the caller's to keep.
	All(kind models.Kind) (map[string]models.Entity, error)
	// New registers e; it becomes visible to All, Get and Count at once and
	// durable after Save.
	New(e models.Entity) error
	// Save durably persists every pending change.
	Save() error
	// Delete removes e. Absent entities are ignored.
	Delete(e models.Entity) error
	// Get returns the entity of kind with id, or ErrNotFound.
	Get(kind models.Kind, id string) (models.Entity, error)
	// Count counts entities of kind; empty kind counts everything.
	Count(kind models.Kind) (int, error)
	// Reload discards in-memory state and repopulates it from the backing medium.
	Reload() error
	// Close ends the current unit of work.
	Close() error
}

// Shutdowner is implemented by backends holding process-lifetime resources.
type Shutdowner interface {
	Shutdown() error
}

// Sessioner is implemented by backends whose unit of work is private to its
// caller. Session opens a new one.
type Sessioner interface {
	Session() Storage
}

// Begin returns the Storage a background unit of work should use and the
// function ending it. Backends with sessions get a fresh one, ended by Close.
// Other backends are returned as is and nothing is closed, so a shared
// registry is never reloaded under a concurrent request.
func Begin(s Storage) (Storage, func()) {
	sess, ok := s.(Sessioner)
	if !ok {
		return s, func() {}
	}
	scoped := sess.Session()
	return scoped, func() { scoped.Close() }
}

// PersistenceError wraps an I/O or transaction failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Open builds the backend selected by cfg and loads its state.
func Open(cfg *config.Config) (Storage, error) {
	var s Storage
	switch cfg.StorageType {
	case config.StorageDB:
		s = NewDBStorage(cfg.DBDriver, cfg.DBDSN)
	default:
		s = NewFileStorage(cfg.FilePath)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func checkKind(kind models.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(kind))
	}
	return nil
}

// countKinds resolves the kind argument of Count. The universal base kind is
// valid but has no direct instances, so it resolves to nothing.
func countKinds(kind models.Kind) ([]models.Kind, error) {
	switch {
	case kind == "":
		return models.Kinds(), nil
	case kind == models.KindBase:
		return nil, nil
	case kind.Valid():
		return []models.Kind{kind}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidKind, string(kind))
}

// listKinds resolves the kind argument of All, which never fails.
func listKinds(kind models.Kind) []models.Kind {
	if kind == "" {
		return models.Kinds()
	}
	if kind.Valid() {
		return []models.Kind{kind}
	}
	return nil
}
