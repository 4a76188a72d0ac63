package models

import (
	"time"

	"github.com/google/uuid"
)

// TimeFormat is the textual timestamp layout used in serialized entities.
const TimeFormat = "2006-01-02T15:04:05.000000"

// ClassKey is the type discriminator key of a serialized entity.
const ClassKey = "__class__"

// Entity is implemented by the six concrete domain types and nothing else.
type Entity interface {
	Kind() Kind
	Meta() *Base

	get(name string) any
	set(name string, v any)
}

// Base holds the identity and timestamps shared by every entity.
type Base struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func newBase() Base {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return Base{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
}

// Meta exposes the shared fields of an entity.
func (b *Base) Meta() *Base { return b }

// Touch refreshes UpdatedAt. Timestamps keep microsecond precision, the
// resolution of TimeFormat.
func (b *Base) Touch() {
	b.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
}

// Key returns the registry key "<Kind>.<id>".
func Key(e Entity) string {
	return KeyOf(e.Kind(), e.Meta().ID)
}

// KeyOf builds a registry key without an entity at hand.
func KeyOf(k Kind, id string) string {
	return string(k) + "." + id
}

// Equal reports whether a and b denote the same entity: same kind and id.
func Equal(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Kind() == b.Kind() && a.Meta().ID == b.Meta().ID
}
