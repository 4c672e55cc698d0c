package geoapify

import (
	"strings"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

// geometry coordinates are [lon, lat].
type geometry struct {
	Coordinates []float64 `json:"coordinates"`
}

type properties struct {
	PlaceID      string   `json:"place_id"`
	Name         *string  `json:"name"`
	AddressLine1 *string  `json:"address_line1"`
	AddressLine2 *string  `json:"address_line2"`
	Categories   []string `json:"categories"`
	OpeningHours *string  `json:"opening_hours"`
	Contact      *contact `json:"contact"`
	Website      *string  `json:"website"`
	Country      *string  `json:"country"`
	City         *string  `json:"city"`
}

type contact struct {
	Phone *string `json:"phone"`
}

const unknownPlaceName = "Unknown place"

// toPlace converts a search feature. ok is false for features that cannot
// be placed on a map or identified.
func (f feature) toPlace() (types.Place, bool) {
	p := f.Properties
	if p.PlaceID == "" || len(f.Geometry.Coordinates) < 2 {
		return types.Place{}, false
	}

	name := unknownPlaceName
	if p.Name != nil && *p.Name != "" {
		name = *p.Name
	}

	var phone *string
	if p.Contact != nil {
		phone = p.Contact.Phone
	}

	return types.Place{
		ID:   p.PlaceID,
		Name: name,
		Address: types.StringPtr(joinNonEmpty(", ", p.AddressLine1, p.AddressLine2)),
		Coordinate: types.LatLon{
			Lat: f.Geometry.Coordinates[1],
			Lon: f.Geometry.Coordinates[0],
		},
		Category:     types.StringPtr(types.NormalizedCategoryToken(p.Categories)),
		Phone:        phone,
		OpeningHours: p.OpeningHours,
	}, true
}

func joinNonEmpty(sep string, parts ...*string) string {
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != nil && *s != "" {
			out = append(out, *s)
		}
	}
	return strings.Join(out, sep)
}

// detailsResponse mirrors the place-details payload.
type detailsResponse struct {
	Features []struct {
		Properties detailsProperties `json:"properties"`
	} `json:"features"`
}

type detailsProperties struct {
	Name         *string  `json:"name"`
	AddressLine1 *string  `json:"address_line1"`
	AddressLine2 *string  `json:"address_line2"`
	City         *string  `json:"city"`
	Country      *string  `json:"country"`
	Phone        *string  `json:"phone"`
	Contact      *contact `json:"contact"`
	Website      *string  `json:"website"`
	OpeningHours *string  `json:"opening_hours"`
	Email        *string  `json:"email"`
	Categories   []string `json:"categories"`
}

func (d detailsProperties) toPatch() types.PlaceDetailPatch {
	phone := d.Phone
	if phone == nil && d.Contact != nil {
		phone = d.Contact.Phone
	}
	return types.PlaceDetailPatch{
		Name:         d.Name,
		Address:      d.AddressLine1,
		Phone:        phone,
		OpeningHours: d.OpeningHours,
		Website:      d.Website,
	}
}

type autocompleteResponse struct {
	Features []struct {
		Properties struct {
			Formatted string  `json:"formatted"`
			Lat       float64 `json:"lat"`
			Lon       float64 `json:"lon"`
		} `json:"properties"`
	} `json:"features"`
}
