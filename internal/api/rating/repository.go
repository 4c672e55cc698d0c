package rating

import (
	"context"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

// Repository stores user ratings. Ratings are append-only; the value is
// stored as given.
type Repository interface {
	AddRating(ctx context.Context, placeID string, value int) (types.Rating, error)
	GetRatingsByPlaceID(ctx context.Context, placeID string) ([]types.Rating, error)
	// GetRatingsByPlaceIDs returns ratings grouped by place. Places without
	// ratings are absent from the map.
	GetRatingsByPlaceIDs(ctx context.Context, placeIDs []string) (map[string][]types.Rating, error)
}
