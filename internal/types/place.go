package types

import "errors"

var ErrNotFound = errors.New("requested item not found")

// LatLon is a WGS84 coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Place is a normalized point of interest returned by the search provider.
// Identity is the ID alone: a details-enriched copy and a search-result copy
// of the same place compare equal through SamePlace.
type Place struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      *string `json:"address,omitempty"`
	Coordinate   LatLon  `json:"coordinate"`
	Category     *string `json:"category,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	OpeningHours *string `json:"opening_hours,omitempty"`
}

func (p Place) SamePlace(other Place) bool {
	return p.ID == other.ID
}

// AddressOrEmpty returns the address, or "" when unknown.
func (p Place) AddressOrEmpty() string {
	if p.Address == nil {
		return ""
	}
	return *p.Address
}

// PlaceDetailPatch is a partial overlay returned by a details lookup.
// Nil fields mean "unknown", never "clear".
type PlaceDetailPatch struct {
	Name         *string `json:"name,omitempty"`
	Address      *string `json:"address,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	OpeningHours *string `json:"opening_hours,omitempty"`
	Website      *string `json:"website,omitempty"`
}

// ApplyTo merges the patch onto p. ID, coordinate and category always come
// from p.
func (d PlaceDetailPatch) ApplyTo(p Place) Place {
	merged := p
	if d.Name != nil && *d.Name != "" {
		merged.Name = *d.Name
	}
	if d.Address != nil {
		merged.Address = d.Address
	}
	if d.Phone != nil {
		merged.Phone = d.Phone
	}
	if d.OpeningHours != nil {
		merged.OpeningHours = d.OpeningHours
	}
	return merged
}

// AutocompleteResult is an address suggestion for the search bar.
type AutocompleteResult struct {
	Formatted string  `json:"formatted"`
	Lat       float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func (a AutocompleteResult) Coordinate() LatLon {
	return LatLon{Lat: a.Lat, Lon: a.Lon}
}

// StringPtr returns nil for "" and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
