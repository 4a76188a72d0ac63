package models

import (
	"fmt"
	"maps"
	"slices"
)

// FieldType is the value type of an entity attribute.
type FieldType int

const (
	String FieldType = iota
	Int
	Float
	StringList
)

// Field describes one type-specific attribute of a kind.
type Field struct {
	Name string
	Type FieldType
	// Required fields must be present when the entity is created.
	Required bool
	// Immutable fields may be set on create but are ignored on update.
	Immutable bool
	// Secret fields are persisted but never returned to clients.
	Secret bool
	// Unique fields may not hold the same value on two entities of a kind.
	Unique bool
	// Ref names the kind an id-valued field points at.
	Ref Kind
}

var schemas = map[Kind][]Field{
	KindUser: {
		{Name: "email", Type: String, Required: true, Immutable: true, Unique: true},
		{Name: "password", Type: String, Required: true, Secret: true},
		{Name: "first_name", Type: String},
		{Name: "last_name", Type: String},
	},
	KindState: {
		{Name: "name", Type: String, Required: true},
	},
	KindCity: {
		{Name: "state_id", Type: String, Required: true, Immutable: true, Ref: KindState},
		{Name: "name", Type: String, Required: true},
	},
	KindAmenity: {
		{Name: "name", Type: String, Required: true},
	},
	KindPlace: {
		{Name: "city_id", Type: String, Required: true, Immutable: true, Ref: KindCity},
		{Name: "user_id", Type: String, Required: true, Immutable: true, Ref: KindUser},
		{Name: "name", Type: String, Required: true},
		{Name: "description", Type: String},
		{Name: "number_rooms", Type: Int},
		{Name: "number_bathrooms", Type: Int},
		{Name: "max_guest", Type: Int},
		{Name: "price_by_night", Type: Int},
		{Name: "latitude", Type: Float},
		{Name: "longitude", Type: Float},
		{Name: "amenity_ids", Type: StringList, Immutable: true},
	},
	KindReview: {
		{Name: "place_id", Type: String, Required: true, Immutable: true, Ref: KindPlace},
		{Name: "user_id", Type: String, Required: true, Immutable: true, Ref: KindUser},
		{Name: "text", Type: String, Required: true},
	},
}

// protected keys are never assigned from client input.
var protected = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	ClassKey:     true,
}

// Schema returns the type-specific attributes of k, in declaration order.
func Schema(k Kind) []Field {
	return slices.Clone(schemas[k])
}

func lookupField(k Kind, name string) (Field, bool) {
	for _, f := range schemas[k] {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldError reports a client-side problem with an attribute.
type FieldError struct {
	Field  string
	Reason string
}

const (
	reasonMissing = "missing"
	reasonUnknown = "unknown"
	reasonInvalid = "invalid"
	reasonTaken   = "taken"
)

// DuplicateError reports a unique field whose value is already in use.
func DuplicateError(field string) *FieldError {
	return &FieldError{Field: field, Reason: reasonTaken}
}

func (e *FieldError) Error() string {
	switch e.Reason {
	case reasonMissing:
		return "Missing " + e.Field
	case reasonUnknown:
		return "Unknown field " + e.Field
	case reasonTaken:
		return "Duplicate " + e.Field
	default:
		return "Invalid value for " + e.Field
	}
}

// CheckRequired returns a "Missing <field>" error for the first required
// attribute of k absent from attrs.
func CheckRequired(k Kind, attrs map[string]any) error {
	for _, f := range schemas[k] {
		if !f.Required {
			continue
		}
		if _, ok := attrs[f.Name]; !ok {
			return &FieldError{Field: f.Name, Reason: reasonMissing}
		}
	}
	return nil
}

// Apply assigns client-supplied attributes to e. Protected keys are skipped,
// as are immutable fields when update is true. Unknown keys and badly typed
// values fail the whole call and leave e untouched.
func Apply(e Entity, attrs map[string]any, update bool) error {
	k := e.Kind()
	staged := make(map[string]any, len(attrs))
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		if protected[name] {
			continue
		}
		f, ok := lookupField(k, name)
		if !ok {
			return &FieldError{Field: name, Reason: reasonUnknown}
		}
		if update && f.Immutable {
			continue
		}
		v, ok := coerce(f.Type, attrs[name])
		if !ok {
			return &FieldError{Field: name, Reason: reasonInvalid}
		}
		if k == KindUser && name == "password" {
			hashed, err := hashPassword(v.(string))
			if err != nil {
				return &FieldError{Field: name, Reason: reasonInvalid}
			}
			v = hashed
		}
		staged[name] = v
	}
	for name, v := range staged {
		e.set(name, v)
	}
	return nil
}

// RefsOf returns the id-valued references of e keyed by field name,
// skipping empty ones.
func RefsOf(e Entity) map[string]Kind {
	refs := make(map[string]Kind)
	for _, f := range schemas[e.Kind()] {
		if f.Ref == "" {
			continue
		}
		if id, _ := e.get(f.Name).(string); id != "" {
			refs[f.Name] = f.Ref
		}
	}
	return refs
}

// Attr reads a single type-specific attribute of e.
func Attr(e Entity, name string) (any, error) {
	if _, ok := lookupField(e.Kind(), name); !ok {
		return nil, fmt.Errorf("%s has no attribute %q", e.Kind(), name)
	}
	return e.get(name), nil
}
