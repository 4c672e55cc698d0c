package types

import (
	"time"

	"github.com/google/uuid"
)

// Rating is one user submission for a place. Ratings are append-only and
// are not tied to a favourite.
type Rating struct {
	ID        uuid.UUID `json:"id"`
	PlaceID   string    `json:"place_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// FavoritePlace is the snapshot saved when the user favourites a place.
// ID equals the source Place.ID.
type FavoritePlace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Category  *string   `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFavoritePlace snapshots p at favourite time.
func NewFavoritePlace(p Place) FavoritePlace {
	return FavoritePlace{
		ID:       p.ID,
		Name:     p.Name,
		Address:  p.AddressOrEmpty(),
		Category: p.Category,
	}
}

// Place rebuilds a Place from the snapshot. The coordinate is not stored
// and stays zero.
func (f FavoritePlace) Place() Place {
	p := Place{ID: f.ID, Name: f.Name, Category: f.Category}
	if f.Address != "" {
		p.Address = StringPtr(f.Address)
	}
	return p
}

type AddRatingRequest struct {
	Value int `json:"value" validate:"required,min=1,max=5"`
}

type PlaceRatingSummary struct {
	PlaceID      string  `json:"place_id"`
	AverageFill  float64 `json:"average_fill"`
	AverageStars float64 `json:"average_stars"`
	Count        int     `json:"count"`
	Display      string  `json:"display"`
}

type ToggleFavouriteRequest struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Address  *string `json:"address,omitempty"`
	Category *string `json:"category,omitempty"`
}

func (r ToggleFavouriteRequest) Place() Place {
	return Place{ID: r.ID, Name: r.Name, Address: r.Address, Category: r.Category}
}

type ToggleFavouriteResponse struct {
	PlaceID     string `json:"place_id"`
	IsFavourite bool   `json:"is_favourite"`
}
