package types

import "fmt"

// SortMode orders the visible place list.
type SortMode string

const (
	SortDistance SortMode = "distance"
	SortRating   SortMode = "rating"
	SortName     SortMode = "name"
)

var AllSortModes = []SortMode{SortDistance, SortRating, SortName}

func (s SortMode) Title() string {
	switch s {
	case SortDistance:
		return "Distance"
	case SortRating:
		return "Rating"
	case SortName:
		return "Alphabetical"
	}
	return string(s)
}

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(s); m {
	case SortDistance, SortRating, SortName:
		return m, nil
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}

// ExploreState is a point-in-time copy of the explore view model.
type ExploreState struct {
	Category      PlaceCategory `json:"category"`
	Center        LatLon        `json:"center"`
	RadiusKm      float64       `json:"radius_km"`
	Places        []Place       `json:"places"`
	IsLoading     bool          `json:"is_loading"`
	ErrorMessage  *string       `json:"error_message,omitempty"`
	Query         string        `json:"query"`
	Sort          SortMode      `json:"sort"`
	OnlyFavorites bool          `json:"only_favorites"`
	ListVisible   bool          `json:"list_visible"`
}

// VisiblePlace is a projected place with its render-time aggregates.
type VisiblePlace struct {
	Place
	AverageFill    float64 `json:"average_fill"`
	IsFavourite    bool    `json:"is_favourite"`
	DistanceMeters float64 `json:"distance_meters"`
	Glyph          string  `json:"glyph"`
}

type ExploreResponse struct {
	State   ExploreState   `json:"state"`
	Visible []VisiblePlace `json:"visible"`
}

// Request payloads for the explore endpoints.

type SetCategoryRequest struct {
	Category string `json:"category" validate:"required,oneof=restaurant cafe hotel"`
}

type SetRadiusRequest struct {
	RadiusKm float64 `json:"radius_km" validate:"gt=0,lte=50"`
}

type SearchRequest struct {
	Center   LatLon   `json:"center"`
	RadiusKm *float64 `json:"radius_km,omitempty" validate:"omitempty,gt=0,lte=50"`
}

type SetFiltersRequest struct {
	Query         *string `json:"query,omitempty"`
	Sort          *string `json:"sort,omitempty" validate:"omitempty,oneof=distance rating name"`
	OnlyFavorites *bool   `json:"only_favorites,omitempty"`
}

type SetListVisibleRequest struct {
	Visible bool `json:"visible"`
}

type PlaceDetailsResponse struct {
	Place       Place              `json:"place"`
	AverageFill float64            `json:"average_fill"`
	IsFavourite bool               `json:"is_favourite"`
	Animation   *CategoryAnimation `json:"animation,omitempty"`
}
