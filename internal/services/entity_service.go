package services

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/storage"
	"github.com/rs/zerolog/log"
)

// Change event actions published after every successful mutation.
const (
	ActionCreated = "entity.created"
	ActionUpdated = "entity.updated"
	ActionDeleted = "entity.deleted"
)

// Publisher receives change events. The websocket hub is the production
// implementation.
type Publisher interface {
	Publish(topic, action string, payload any)
}

// EntityServiceProvider defines the interface for entity services.
type EntityServiceProvider interface {
	List(kind models.Kind) ([]models.Entity, error)
	ListChildren(kind models.Kind, field string, parentKind models.Kind, parentID string) ([]models.Entity, error)
	Get(kind models.Kind, id string) (models.Entity, error)
	Create(kind models.Kind, attrs map[string]any) (models.Entity, error)
	Update(kind models.Kind, id string, attrs map[string]any) (models.Entity, error)
	Delete(kind models.Kind, id string) error
	Stats() (map[string]int, error)
	PlaceAmenities(placeID string) ([]models.Entity, error)
	LinkAmenity(placeID, amenityID string) (models.Entity, bool, error)
	UnlinkAmenity(placeID, amenityID string) error
	SearchPlaces(q PlaceSearch) ([]models.Entity, error)
	ForRequest() (EntityServiceProvider, func())
	Teardown()
}

// EntityService implements the CRUD rules shared by every kind on top of a
// storage backend.
type EntityService struct {
	store  storage.Storage
	events Publisher
}

// NewEntityService creates a new EntityService. events may be nil.
func NewEntityService(store storage.Storage, events Publisher) *EntityService {
	return &EntityService{store: store, events: events}
}

// List returns every entity of kind, oldest first.
func (s *EntityService) List(kind models.Kind) ([]models.Entity, error) {
	all, err := s.store.All(kind)
	if err != nil {
		return nil, err
	}
	return sorted(all), nil
}

// ListChildren returns the entities of kind whose field points at the given
// parent, which must exist.
func (s *EntityService) ListChildren(kind models.Kind, field string, parentKind models.Kind, parentID string) ([]models.Entity, error) {
	if _, err := s.store.Get(parentKind, parentID); err != nil {
		return nil, err
	}
	all, err := s.List(kind)
	if err != nil {
		return nil, err
	}
	out := make([]models.Entity, 0)
	for _, e := range all {
		v, err := models.Attr(e, field)
		if err != nil {
			return nil, err
		}
		if v == parentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Get retrieves a single entity. Missing ids yield storage.ErrNotFound.
func (s *EntityService) Get(kind models.Kind, id string) (models.Entity, error) {
	return s.store.Get(kind, id)
}

// Create validates attrs, builds the entity and persists it. Every id-valued
// reference must point at an existing entity.
func (s *EntityService) Create(kind models.Kind, attrs map[string]any) (models.Entity, error) {
	if err := models.CheckRequired(kind, attrs); err != nil {
		return nil, err
	}
	e, err := models.New(kind)
	if err != nil {
		return nil, err
	}
	if err := models.Apply(e, attrs, false); err != nil {
		return nil, err
	}
	if err := s.checkRefs(e); err != nil {
		return nil, err
	}
	if err := s.checkUnique(e); err != nil {
		return nil, err
	}
	if err := s.persist(e); err != nil {
		return nil, err
	}
	s.publish(e, ActionCreated)
	return e, nil
}

// Update applies attrs to an existing entity and persists it.
func (s *EntityService) Update(kind models.Kind, id string, attrs map[string]any) (models.Entity, error) {
	e, err := s.store.Get(kind, id)
	if err != nil {
		return nil, err
	}
	if err := models.Apply(e, attrs, true); err != nil {
		return nil, err
	}
	if err := s.persist(e); err != nil {
		return nil, err
	}
	s.publish(e, ActionUpdated)
	return e, nil
}

// Delete removes an existing entity.
func (s *EntityService) Delete(kind models.Kind, id string) error {
	e, err := s.store.Get(kind, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(e); err != nil {
		return err
	}
	if err := s.store.Save(); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish(string(kind), ActionDeleted, map[string]string{"id": id})
	}
	return nil
}

// Stats counts the entities of every recognized kind, keyed by plural name.
func (s *EntityService) Stats() (map[string]int, error) {
	stats := make(map[string]int)
	for _, k := range models.Kinds() {
		n, err := s.store.Count(k)
		if err != nil {
			return nil, err
		}
		stats[k.Plural()] = n
	}
	return stats, nil
}

// ForRequest returns the service one request should use and its teardown.
// Backends with sessions get a private one, so concurrent requests never end
// each other's work. The file backend is shared and its teardown is Close.
func (s *EntityService) ForRequest() (EntityServiceProvider, func()) {
	sess, ok := s.store.(storage.Sessioner)
	if !ok {
		return s, s.Teardown
	}
	scoped := &EntityService{store: sess.Session(), events: s.events}
	return scoped, scoped.Teardown
}

// Detached returns a service for a background job and the function ending
// it. Unlike a request it never closes a shared registry.
func (s *EntityService) Detached() (*EntityService, func()) {
	store, end := storage.Begin(s.store)
	return &EntityService{store: store, events: s.events}, end
}

// Teardown ends the storage unit of work at the end of a request.
func (s *EntityService) Teardown() {
	if err := s.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage session")
	}
}

func (s *EntityService) persist(e models.Entity) error {
	e.Meta().Touch()
	if err := s.store.New(e); err != nil {
		return err
	}
	return s.store.Save()
}

func (s *EntityService) checkRefs(e models.Entity) error {
	for field, ref := range models.RefsOf(e) {
		v, _ := models.Attr(e, field)
		id, _ := v.(string)
		if _, err := s.store.Get(ref, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%s %s: %w", field, id, storage.ErrNotFound)
			}
			return err
		}
	}
	return nil
}

// checkUnique rejects e when another entity of its kind already holds the
// value of one of its unique fields.
func (s *EntityService) checkUnique(e models.Entity) error {
	var unique []models.Field
	for _, f := range models.Schema(e.Kind()) {
		if f.Unique {
			unique = append(unique, f)
		}
	}
	if len(unique) == 0 {
		return nil
	}
	others, err := s.store.All(e.Kind())
	if err != nil {
		return err
	}
	for _, f := range unique {
		want, _ := models.Attr(e, f.Name)
		for _, o := range others {
			if o.Meta().ID == e.Meta().ID {
				continue
			}
			if got, _ := models.Attr(o, f.Name); got == want {
				return models.DuplicateError(f.Name)
			}
		}
	}
	return nil
}

func (s *EntityService) publish(e models.Entity, action string) {
	if s.events == nil {
		return
	}
	s.events.Publish(string(e.Kind()), action, models.PublicMap(e))
}

// sorted orders entities by creation time, then id.
func sorted(all map[string]models.Entity) []models.Entity {
	out := make([]models.Entity, 0, len(all))
	for _, e := range all {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b models.Entity) int {
		if c := a.Meta().CreatedAt.Compare(b.Meta().CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Meta().ID, b.Meta().ID)
	})
	return out
}
