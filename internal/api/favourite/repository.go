package favourite

import (
	"context"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

// Repository stores favourited place snapshots keyed by place id.
type Repository interface {
	IsFavourite(ctx context.Context, placeID string) (bool, error)
	// AddFavourite reports false when the place was already saved.
	AddFavourite(ctx context.Context, fav types.FavoritePlace) (bool, error)
	// RemoveFavourite reports false when there was nothing to remove.
	RemoveFavourite(ctx context.Context, placeID string) (bool, error)
	// GetFavourite returns types.ErrNotFound when placeID is not saved.
	GetFavourite(ctx context.Context, placeID string) (types.FavoritePlace, error)
	GetFavourites(ctx context.Context) ([]types.FavoritePlace, error)
	GetFavouriteIDs(ctx context.Context) (map[string]struct{}, error)
}
