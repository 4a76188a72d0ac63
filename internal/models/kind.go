package models

import (
	"errors"
	"fmt"
)

// Kind is the type discriminator stored in every serialized entity.
type Kind string

const (
	KindUser    Kind = "User"
	KindState   Kind = "State"
	KindCity    Kind = "City"
	KindAmenity Kind = "Amenity"
	KindPlace   Kind = "Place"
	KindReview  Kind = "Review"

	// KindBase is the universal supertype. It is a valid kind to ask about
	// but never has direct instances.
	KindBase Kind = "BaseModel"
)

// ErrUnknownKind is returned when a discriminator names no recognized kind.
var ErrUnknownKind = errors.New("unknown entity kind")

var kinds = []Kind{KindAmenity, KindCity, KindPlace, KindReview, KindState, KindUser}

var plurals = map[Kind]string{
	KindUser:    "users",
	KindState:   "states",
	KindCity:    "cities",
	KindAmenity: "amenities",
	KindPlace:   "places",
	KindReview:  "reviews",
}

// Kinds returns every recognized kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Valid reports whether k is one of the recognized, instantiable kinds.
func (k Kind) Valid() bool {
	_, ok := plurals[k]
	return ok
}

// Plural is the collection name used in routes and stats.
func (k Kind) Plural() string {
	return plurals[k]
}

// ParseKind maps a discriminator string onto a recognized kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// New constructs a fresh entity of the given kind with a new id and timestamps.
func New(k Kind) (Entity, error) {
	base := newBase()
	switch k {
	case KindUser:
		return &User{Base: base}, nil
	case KindState:
		return &State{Base: base}, nil
	case KindCity:
		return &City{Base: base}, nil
	case KindAmenity:
		return &Amenity{Base: base}, nil
	case KindPlace:
		return &Place{Base: base, AmenityIDs: []string{}}, nil
	case KindReview:
		return &Review{Base: base}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}
