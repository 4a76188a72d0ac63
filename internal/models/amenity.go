package models

// Amenity is a feature a Place can offer.
type Amenity struct {
	Base
	Name string
}

func (a *Amenity) Kind() Kind { return KindAmenity }

func (a *Amenity) get(name string) any {
	if name == "name" {
		return a.Name
	}
	return nil
}

func (a *Amenity) set(name string, v any) {
	if name == "name" {
		a.Name = v.(string)
	}
}
