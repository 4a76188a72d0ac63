package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrSessionDiscarded is returned by Save when the session's staged writes
// were rolled back by Close before they could be committed.
var ErrSessionDiscarded = errors.New("session closed before save")

// DBStorage keeps no cache: every call runs inside a session. A session reads
// straight from the pool until its first write begins a transaction, which
// Save commits and Close rolls back. Calls made on the DBStorage
// itself share its default session; Session hands out independent ones.
type DBStorage struct {
	*session

	driver string
	dsn    string

	mu sync.RWMutex
	db *sql.DB
}

// NewDBStorage creates a DBStorage for the given database/sql driver and
// DSN. Nothing is opened until Reload.
func NewDBStorage(driver, dsn string) *DBStorage {
	s := &DBStorage{driver: driver, dsn: dsn}
	s.session = &session{store: s}
	return s
}

// Session opens a unit of work with its own transaction on the shared pool.
// Nothing another session stages is visible to it, and its Close discards
// only its own writes.
func (s *DBStorage) Session() Storage {
	return &session{store: s}
}

func (s *DBStorage) pool() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("storage: database not loaded")
	}
	return s.db, nil
}

// Reload drops the default session, reopens the connection pool and makes
// sure the schema exists.
func (s *DBStorage) Reload() error {
	s.session.mu.Lock()
	s.session.rollback()
	s.session.discarded = false
	s.session.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	db, err := openDB(s.driver, s.dsn)
	if err != nil {
		return &PersistenceError{Op: "open", Err: err}
	}
	if err := migrate(db); err != nil {
		db.Close()
		return &PersistenceError{Op: "migrate", Err: err}
	}
	s.db = db
	log.Debug().Str("driver", s.driver).Msg("DBStorage: schema ready")
	return nil
}

// Shutdown closes the default session and the connection pool.
func (s *DBStorage) Shutdown() error {
	s.session.mu.Lock()
	s.session.rollback()
	s.session.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// session is one unit of work against a DBStorage.
type session struct {
	store *DBStorage

	mu sync.Mutex
	tx *sql.Tx
	// dirty is set once the open transaction holds a write; discarded once
	// such a transaction was rolled back and Save has not reported it yet.
	dirty     bool
	discarded bool
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// reader returns the open transaction, so staged writes stay visible, or the
// pool when there is none. Callers hold s.mu.
func (s *session) reader() (querier, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	return s.store.pool()
}

// begin returns the open transaction, beginning one if needed. Callers hold
// s.mu.
func (s *session) begin() (*sql.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	db, err := s.store.pool()
	if err != nil {
		return nil, err
	}
	tx, err := db.Begin()
	if err != nil {
		return nil, &PersistenceError{Op: "begin", Err: err}
	}
	s.tx = tx
	return tx, nil
}

func (s *session) All(kind models.Kind) (map[string]models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.Entity)
	kinds := listKinds(kind)
	if len(kinds) == 0 {
		return out, nil
	}
	q, err := s.reader()
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		rows, err := q.Query(selectSQL(k))
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", k.Plural(), err)
		}
		for rows.Next() {
			e, err := scanEntity(k, rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[models.Key(e)] = e
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", k.Plural(), err)
		}
	}
	return out, nil
}

func (s *session) New(e models.Entity) error {
	if e == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	args, err := rowValues(e)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(rebind(s.store.driver, upsertSQL(e.Kind())), args...); err != nil {
		return fmt.Errorf("stage %s: %w", models.Key(e), err)
	}
	s.dirty = true
	return nil
}

// Save commits the session. Without an open transaction there is nothing to
// do, unless Close threw staged writes away, which is reported once.
func (s *session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		if s.discarded {
			s.discarded = false
			return &PersistenceError{Op: "commit", Err: ErrSessionDiscarded}
		}
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	s.dirty = false
	if err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

func (s *session) Delete(e models.Entity) error {
	if e == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return err
	}
	query := rebind(s.store.driver, fmt.Sprintf("DELETE FROM %s WHERE id = ?", e.Kind().Plural()))
	if _, err := tx.Exec(query, e.Meta().ID); err != nil {
		return fmt.Errorf("stage delete %s: %w", models.Key(e), err)
	}
	s.dirty = true
	return nil
}

func (s *session) Get(kind models.Kind, id string) (models.Entity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.reader()
	if err != nil {
		return nil, err
	}
	row := q.QueryRow(rebind(s.store.driver, selectSQL(kind)+" WHERE id = ?"), id)
	e, err := scanEntity(kind, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *session) Count(kind models.Kind) (int, error) {
	kinds, err := countKinds(kind)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(kinds) == 0 {
		return 0, nil
	}
	q, err := s.reader()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, k := range kinds {
		var n int
		if err := q.QueryRow("SELECT COUNT(*) FROM " + k.Plural()).Scan(&n); err != nil {
			return 0, fmt.Errorf("count %s: %w", k.Plural(), err)
		}
		total += n
	}
	return total, nil
}

// Reload on a session drops its transaction and reloads the whole backend.
func (s *session) Reload() error {
	s.mu.Lock()
	s.rollback()
	s.discarded = false
	s.mu.Unlock()
	return s.store.Reload()
}

// Close releases the session, discarding anything not saved.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollback()
	return nil
}

func (s *session) rollback() {
	if s.tx == nil {
		return
	}
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warn().Err(err).Msg("DBStorage: rollback failed")
	}
	if s.dirty {
		s.discarded = true
	}
	s.tx = nil
	s.dirty = false
}

// rowValues lists e's column values in the order of columns(e.Kind()).
func rowValues(e models.Entity) ([]any, error) {
	m := models.ToMap(e)
	args := []any{m["id"], m["created_at"], m["updated_at"]}
	for _, f := range models.Schema(e.Kind()) {
		v := m[f.Name]
		if f.Type == models.StringList {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s.%s: %w", models.Key(e), f.Name, err)
			}
			v = string(raw)
		}
		args = append(args, v)
	}
	return args, nil
}

// scanEntity reads one row of k's table back into an entity.
func scanEntity(k models.Kind, row interface{ Scan(...any) error }) (models.Entity, error) {
	cols := columns(k)
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return nil, err
	}

	m := map[string]any{models.ClassKey: string(k)}
	for i, c := range cols {
		if b, ok := vals[i].([]byte); ok {
			vals[i] = string(b)
		}
		m[c] = vals[i]
	}
	return models.FromMap(m)
}
