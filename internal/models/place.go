package models

import "slices"

// Place is a rentable listing in a City, owned by a User.
type Place struct {
	Base
	CityID          string
	UserID          string
	Name            string
	Description     string
	NumberRooms     int
	NumberBathrooms int
	MaxGuest        int
	PriceByNight    int
	Latitude        float64
	Longitude       float64
	AmenityIDs      []string
}

func (p *Place) Kind() Kind { return KindPlace }

// HasAmenity reports whether the amenity id is linked to p.
func (p *Place) HasAmenity(id string) bool {
	return slices.Contains(p.AmenityIDs, id)
}

// LinkAmenity adds id to p and reports whether it was newly linked.
func (p *Place) LinkAmenity(id string) bool {
	if p.HasAmenity(id) {
		return false
	}
	p.AmenityIDs = append(p.AmenityIDs, id)
	return true
}

// UnlinkAmenity removes id from p and reports whether it was linked.
func (p *Place) UnlinkAmenity(id string) bool {
	i := slices.Index(p.AmenityIDs, id)
	if i < 0 {
		return false
	}
	p.AmenityIDs = slices.Delete(p.AmenityIDs, i, i+1)
	return true
}

func (p *Place) get(name string) any {
	switch name {
	case "city_id":
		return p.CityID
	case "user_id":
		return p.UserID
	case "name":
		return p.Name
	case "description":
		return p.Description
	case "number_rooms":
		return p.NumberRooms
	case "number_bathrooms":
		return p.NumberBathrooms
	case "max_guest":
		return p.MaxGuest
	case "price_by_night":
		return p.PriceByNight
	case "latitude":
		return p.Latitude
	case "longitude":
		return p.Longitude
	case "amenity_ids":
		return slices.Clone(p.AmenityIDs)
	}
	return nil
}

func (p *Place) set(name string, v any) {
	switch name {
	case "city_id":
		p.CityID = v.(string)
	case "user_id":
		p.UserID = v.(string)
	case "name":
		p.Name = v.(string)
	case "description":
		p.Description = v.(string)
	case "number_rooms":
		p.NumberRooms = v.(int)
	case "number_bathrooms":
		p.NumberBathrooms = v.(int)
	case "max_guest":
		p.MaxGuest = v.(int)
	case "price_by_night":
		p.PriceByNight = v.(int)
	case "latitude":
		p.Latitude = v.(float64)
	case "longitude":
		p.Longitude = v.(float64)
	case "amenity_ids":
		p.AmenityIDs = v.([]string)
	}
}
