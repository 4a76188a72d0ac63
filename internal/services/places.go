package services

import (
	"errors"
	"fmt"

	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/storage"
	"github.com/rs/zerolog/log"
)

// PlaceSearch filters places by state, city and amenity ids. Empty filters
// match everything.
type PlaceSearch struct {
	States    []string `json:"states"`
	Cities    []string `json:"cities"`
	Amenities []string `json:"amenities"`
}

func (s *EntityService) place(id string) (*models.Place, error) {
	e, err := s.store.Get(models.KindPlace, id)
	if err != nil {
		return nil, err
	}
	p, ok := e.(*models.Place)
	if !ok {
		return nil, fmt.Errorf("place %s has unexpected type %T", id, e)
	}
	return p, nil
}

// PlaceAmenities lists the amenities linked to a place. Links to amenities
// that no longer exist are skipped.
func (s *EntityService) PlaceAmenities(placeID string) ([]models.Entity, error) {
	p, err := s.place(placeID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Entity, 0, len(p.AmenityIDs))
	for _, id := range p.AmenityIDs {
		a, err := s.store.Get(models.KindAmenity, id)
		if errors.Is(err, storage.ErrNotFound) {
			log.Debug().Str("place_id", placeID).Str("amenity_id", id).Msg("Skipping dangling amenity link")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// LinkAmenity links an amenity to a place. It returns the amenity and
// whether the link is new.
func (s *EntityService) LinkAmenity(placeID, amenityID string) (models.Entity, bool, error) {
	p, err := s.place(placeID)
	if err != nil {
		return nil, false, err
	}
	a, err := s.store.Get(models.KindAmenity, amenityID)
	if err != nil {
		return nil, false, err
	}
	if !p.LinkAmenity(amenityID) {
		return a, false, nil
	}
	if err := s.persist(p); err != nil {
		return nil, false, err
	}
	s.publish(p, ActionUpdated)
	return a, true, nil
}

// UnlinkAmenity removes the link between a place and an amenity. Both must
// exist and be linked, otherwise storage.ErrNotFound is returned.
func (s *EntityService) UnlinkAmenity(placeID, amenityID string) error {
	p, err := s.place(placeID)
	if err != nil {
		return err
	}
	if _, err := s.store.Get(models.KindAmenity, amenityID); err != nil {
		return err
	}
	if !p.UnlinkAmenity(amenityID) {
		return fmt.Errorf("amenity %s not linked to place %s: %w", amenityID, placeID, storage.ErrNotFound)
	}
	if err := s.persist(p); err != nil {
		return err
	}
	s.publish(p, ActionUpdated)
	return nil
}

// SearchPlaces returns the places located in any of the given states or
// cities that offer every one of the given amenities.
func (s *EntityService) SearchPlaces(q PlaceSearch) ([]models.Entity, error) {
	places, err := s.List(models.KindPlace)
	if err != nil {
		return nil, err
	}

	cityIDs := make(map[string]bool)
	for _, id := range q.Cities {
		cityIDs[id] = true
	}
	if len(q.States) > 0 {
		states := make(map[string]bool, len(q.States))
		for _, id := range q.States {
			states[id] = true
		}
		cities, err := s.List(models.KindCity)
		if err != nil {
			return nil, err
		}
		for _, e := range cities {
			if c := e.(*models.City); states[c.StateID] {
				cityIDs[c.ID] = true
			}
		}
	}
	byLocation := len(q.States) > 0 || len(q.Cities) > 0

	out := make([]models.Entity, 0, len(places))
	for _, e := range places {
		p := e.(*models.Place)
		if byLocation && !cityIDs[p.CityID] {
			continue
		}
		if !hasAll(p, q.Amenities) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func hasAll(p *models.Place, amenityIDs []string) bool {
	for _, id := range amenityIDs {
		if !p.HasAmenity(id) {
			return false
		}
	}
	return true
}
